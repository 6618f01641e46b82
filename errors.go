package main

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError is a failed storage call: a non-2xx status or a connection
// failure (StatusCode 0).
type TransportError struct {
	Op         string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request unsuccessful: path='%s': %s", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s request unsuccessful: path='%s' statusCode=%d body='%s'", e.Op, e.Path, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error { return e.Err }

type ListingError struct {
	Path string
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing '%s' failed: %s", e.Path, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("%s '%s': %s", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error { return e.Err }

// PreconditionError is returned when an operation is invoked on a node that
// cannot support it, e.g. listing a file.
type PreconditionError struct {
	Op     string
	Path   string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s '%s': %s", e.Op, e.Path, e.Reason)
}

// SegmentJoinError carries the first failing segment of a multi-segment upload.
type SegmentJoinError struct {
	Path    string
	Segment int
	Err     error
}

func (e *SegmentJoinError) Error() string {
	return fmt.Sprintf("upload of '%s' failed at segment #%d: %s", e.Path, e.Segment, e.Err)
}

func (e *SegmentJoinError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.StatusCode == http.StatusNotFound
	}
	return false
}
