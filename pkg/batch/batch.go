// Package batch decodes many independent buffers concurrently.
package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oisee/i8080-decoder/pkg/dis"
	"github.com/oisee/i8080-decoder/pkg/result"
)

// Config holds batch configuration.
type Config struct {
	NumWorkers int                // Number of parallel workers (defaults to NumCPU)
	Raw        bool               // Produce raw tag streams instead of listings
	Log        logrus.FieldLogger // Optional; nil discards
}

// Run decodes every job and returns the collected listings.
func Run(cfg Config, dec *dis.Decoder, jobs []Job) *result.Table {
	pool := NewWorkerPool(cfg.NumWorkers, dec, cfg.Log)
	startTime := time.Now()

	pool.RunJobs(jobs, cfg.Raw)

	decoded, failed := pool.Stats()
	pool.log.WithFields(logrus.Fields{
		"workers": pool.NumWorkers,
		"decoded": decoded,
		"failed":  failed,
		"elapsed": time.Since(startTime).Round(time.Millisecond),
	}).Debug("batch finished")

	return pool.Results
}

// Decode produces the listing for a single job. In raw mode only the raw
// tag stream is filled in, and it never fails. Otherwise the structured
// decoder runs; on truncation the lines before the fault are kept.
func Decode(dec *dis.Decoder, job Job, raw bool) result.Listing {
	l := result.Listing{Name: job.Name, Size: len(job.Data)}

	if raw {
		for _, tag := range dec.DecodeRaw(job.Data) {
			l.Raw = append(l.Raw, tag.String())
		}
		return l
	}

	lines, err := dec.Listing(job.Data)
	for _, ln := range lines {
		l.Lines = append(l.Lines, result.Line{
			Offset: ln.Offset,
			Bytes:  hexBytes(job.Data[ln.Offset : ln.Offset+ln.Inst.Len()]),
			Text:   dec.Disassemble(ln.Inst),
			Name:   ln.Inst.String(),
		})
	}
	if err != nil {
		l.Err = err.Error()
	}
	return l
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, " ")
}
