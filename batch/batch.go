// Package batch decodes many independent payloads in parallel.
//
// Every decode owns its state, so payloads are simply spread over worker
// goroutines, one payload per worker at a time. A payload that fails to
// decode is reported in its Result and never affects the others.
package batch

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mrjoshuak/go-vncodec/compression"
	"github.com/mrjoshuak/go-vncodec/predictor"
)

// Job is one payload to decode.
type Job struct {
	Name   string // reported back in the Result
	Method string // registered compression method
	Src    []byte
	Size   int // decompressed size, or -1 if the stream marks its end

	// Stages, when set, replace Method and Size with a chain of methods.
	Stages []compression.Stage

	// Filter is applied to the decompressed bytes. The zero value does
	// nothing.
	Filter predictor.Filter
}

// Result is the outcome of one Job.
type Result struct {
	Index int // position of the job in the slice passed to Run
	Name  string
	Data  []byte // partial output when Err matches compression.ErrEndOfStream
	Err   error
}

// Run decodes every job and returns the results in job order. With a zero
// Config the global configuration from GetConfig is used.
func Run(jobs []Job, c Config) []Result {
	if c == (Config{}) {
		c = GetConfig()
	}
	results := make([]Result, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	if c.sequential(len(jobs)) {
		for i := range jobs {
			results[i] = decode(i, &jobs[i])
		}
		return results
	}

	pool := NewWorkerPool(min(c.workers(), len(jobs)))
	defer pool.Close()
	for i := range jobs {
		pool.Submit(func() {
			results[i] = decode(i, &jobs[i])
		})
	}
	pool.Wait()
	return results
}

func decode(i int, j *Job) (res Result) {
	res = Result{Index: i, Name: j.Name}
	defer func() {
		if r := recover(); r != nil {
			res.Data = nil
			res.Err = fmt.Errorf("batch: %s: panic: %v", j.Name, r)
		}
	}()

	var data []byte
	var err error
	if len(j.Stages) > 0 {
		data, err = compression.Pipeline(j.Src, j.Stages...)
	} else {
		data, err = compression.Decompress(j.Method, bytes.NewReader(j.Src), j.Size)
	}
	if err != nil {
		// A truncated stream still yields a usable prefix; a corrupt one
		// does not.
		if errors.Is(err, compression.ErrEndOfStream) {
			res.Data = data
		}
		res.Err = fmt.Errorf("batch: %s: %w", j.Name, err)
		return res
	}
	if err := j.Filter.Apply(data); err != nil {
		res.Err = fmt.Errorf("batch: %s: %w", j.Name, err)
		return res
	}
	res.Data = data
	return res
}

// Errors returns the failed results.
func Errors(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}
