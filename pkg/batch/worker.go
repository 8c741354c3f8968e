package batch

import (
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/oisee/i8080-decoder/pkg/dis"
	"github.com/oisee/i8080-decoder/pkg/result"
)

// WorkerPool decodes jobs in parallel against one shared decoder.
type WorkerPool struct {
	NumWorkers int
	Results    *result.Table
	dec        *dis.Decoder
	log        logrus.FieldLogger
	decoded    atomic.Int64
	failed     atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(numWorkers int, dec *dis.Decoder, log logrus.FieldLogger) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &WorkerPool{
		NumWorkers: numWorkers,
		Results:    result.NewTable(),
		dec:        dec,
		log:        log,
	}
}

// Job is one buffer to decode.
type Job struct {
	Name string
	Data []byte
}

// Stats returns the number of jobs decoded and how many of them failed.
func (wp *WorkerPool) Stats() (decoded, failed int64) {
	return wp.decoded.Load(), wp.failed.Load()
}

// RunJobs distributes jobs across workers.
func (wp *WorkerPool) RunJobs(jobs []Job, raw bool) {
	ch := make(chan Job, len(jobs))
	for _, j := range jobs {
		ch <- j
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < wp.NumWorkers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for job := range ch {
				wp.processJob(worker, job, raw)
			}
		}(i)
	}
	wg.Wait()
}

func (wp *WorkerPool) processJob(worker int, job Job, raw bool) {
	l := Decode(wp.dec, job, raw)
	wp.decoded.Add(1)

	fields := logrus.Fields{
		"worker": worker,
		"file":   job.Name,
		"bytes":  len(job.Data),
	}
	if l.Failed() {
		wp.failed.Add(1)
		wp.log.WithFields(fields).Warn(l.Err)
	} else {
		wp.log.WithFields(fields).Debug("decoded")
	}

	wp.Results.Add(l)
}
