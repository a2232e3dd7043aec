package client

import "fmt"

// FetchError reports a request that failed in transport, returned a non-2xx
// status, or carried a body that was not the expected JSON.
type FetchError struct {
	Method     string
	URL        string
	Status     int
	StatusText string
	Message    string // server-supplied message, when the body had one
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s %s: %d %s: %s", e.Method, e.URL, e.Status, e.StatusText, e.Message)
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %d %s: %v", e.Method, e.URL, e.Status, e.StatusText, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, e.StatusText)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// BatchError reports the chunk that aborted a chunked import. Batch is
// zero-based.
type BatchError struct {
	Route   string
	Batch   int
	Batches int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: batch %d of %d failed: %v", e.Route, e.Batch+1, e.Batches, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
