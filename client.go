package main

import (
	"context"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"
)

const directoryContentType = "application/directory"

// ObjectEntry is one row of a delimited container listing. Either Name is set
// (a real object) or Subdir is (a pseudo directory rolled up by the delimiter).
type ObjectEntry struct {
	Name         string
	Subdir       string
	Bytes        int64
	ContentType  string
	LastModified time.Time
}

func (e ObjectEntry) IsDirectoryMarker() bool {
	return e.ContentType == directoryContentType
}

type ListOptions struct {
	Prefix    string
	Delimiter string
	Marker    string
	Limit     int
}

// Transport is the raw object storage protocol. Implementations perform
// exactly one backend call per method (merge excepted where the backend has
// no manifest objects) and report failures as *TransportError.
type Transport interface {
	List(ctx context.Context, container string, opts ListOptions) ([]ObjectEntry, error)
	Delete(ctx context.Context, container, remotePath string) error
	Mkdir(ctx context.Context, container, remotePath string) error
	Copy(ctx context.Context, container, destination, source string) error
	Merge(ctx context.Context, container, destination, segmentPrefix string) error
	PutSegment(ctx context.Context, container, remotePath string, body io.Reader, size int64) error
}

// encodePath percent-encodes each segment of a slash separated path.
func encodePath(remotePath string) string {
	if remotePath == "" || remotePath == "/" {
		return remotePath
	}
	segments := strings.Split(remotePath, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func contentTypeFor(remotePath string) string {
	contentType := mime.TypeByExtension(path.Ext(remotePath))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}
