package result

import (
	"sort"
	"sync"
)

// Line is one decoded instruction of a listing.
type Line struct {
	Offset int    `json:"offset"`
	Bytes  string `json:"bytes"` // hex, e.g. "c3 04 00"
	Text   string `json:"text"`  // assembly, e.g. "JMP 0004h"
	Name   string `json:"name"`  // structured form, e.g. "Jmp(0x04, 0x00)"
}

// Listing is the decoding result for one input buffer.
type Listing struct {
	Name  string   `json:"name"`
	Size  int      `json:"size"`
	Lines []Line   `json:"lines,omitempty"`
	Raw   []string `json:"raw,omitempty"`
	// Err is set when the structured decoder rejected the buffer. Lines
	// then holds what was decoded before the fault.
	Err string `json:"error,omitempty"`
}

// Failed reports whether decoding the buffer stopped on an error.
func (l Listing) Failed() bool {
	return l.Err != ""
}

// Table collects listings from concurrent workers.
type Table struct {
	mu       sync.Mutex
	listings []Listing
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts a listing into the table.
func (t *Table) Add(l Listing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listings = append(t.listings, l)
}

// Listings returns a copy of all listings, sorted by name.
func (t *Table) Listings() []Listing {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Listing, len(t.listings))
	copy(result, t.listings)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Len returns the number of listings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listings)
}

// Failures returns the number of listings that stopped on an error.
func (t *Table) Failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, l := range t.listings {
		if l.Failed() {
			n++
		}
	}
	return n
}
