package result

import (
	"encoding/json"
	"fmt"
	"io"
)

type document struct {
	Listings []Listing `json:"listings"`
}

// WriteJSON writes listings as an indented JSON document.
func WriteJSON(w io.Writer, listings []Listing) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(document{Listings: listings}); err != nil {
		return fmt.Errorf("failed to encode listings: %w", err)
	}
	return nil
}

// ReadJSON reads a document written by WriteJSON.
func ReadJSON(r io.Reader) ([]Listing, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return doc.Listings, nil
}
