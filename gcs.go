package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS composes at most this many source objects per request.
const gcsMaxComposeSources = 32

type GCSTransport struct {
	Client *storage.Client
}

func NewGCSTransport(pc ProviderConfig) (*GCSTransport, error) {
	clientOptions := make([]option.ClientOption, 0)
	if pc.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(pc.CredentialsFile))
	}
	if pc.Endpoint != "" {
		clientOptions = append(clientOptions, option.WithEndpoint(pc.Endpoint))
	}
	client, err := storage.NewClient(context.TODO(), clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("Error creating gcs client: %+v", err)
	}
	return &GCSTransport{Client: client}, nil
}

func gcsKey(remotePath string) string {
	return strings.TrimPrefix(remotePath, "/")
}

func gcsError(op, remotePath string, err error) error {
	transportErr := &TransportError{Op: op, Path: remotePath, Err: err}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		transportErr.StatusCode = http.StatusNotFound
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		transportErr.StatusCode = apiErr.Code
	}
	return transportErr
}

func (s *GCSTransport) List(ctx context.Context, container string, opts ListOptions) ([]ObjectEntry, error) {
	prefix := gcsKey(opts.Prefix)
	query := &storage.Query{
		Prefix:      prefix,
		Delimiter:   opts.Delimiter,
		StartOffset: startAfter(opts.Marker, opts.Delimiter),
	}
	entries := make([]ObjectEntry, 0)
	objIter := s.Client.Bucket(container).Objects(ctx, query)
	for opts.Limit <= 0 || len(entries) < opts.Limit {
		attrs, err := objIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, gcsError("LIST", opts.Prefix, err)
		}
		if attrs.Prefix != "" {
			if attrs.Prefix <= opts.Marker {
				continue
			}
			entries = append(entries, prefixEntry(attrs.Prefix))
			continue
		}
		// StartOffset is inclusive, the listing marker is not
		if attrs.Name == prefix || attrs.Name <= opts.Marker {
			continue
		}
		entries = append(entries, ObjectEntry{
			Name:         attrs.Name,
			Bytes:        attrs.Size,
			ContentType:  attrs.ContentType,
			LastModified: attrs.Updated,
		})
	}

	return entries, nil
}

func (s *GCSTransport) Delete(ctx context.Context, container, remotePath string) error {
	key := gcsKey(remotePath)
	bucket := s.Client.Bucket(container)

	objErr := bucket.Object(key).Delete(ctx)
	markerErr := bucket.Object(key + "/").Delete(ctx)
	switch {
	case objErr == nil || markerErr == nil:
		return nil
	case errors.Is(objErr, storage.ErrObjectNotExist):
		return gcsError("DELETE", remotePath, markerErr)
	default:
		return gcsError("DELETE", remotePath, objErr)
	}
}

func (s *GCSTransport) Mkdir(ctx context.Context, container, remotePath string) error {
	objWriter := s.Client.Bucket(container).Object(gcsKey(remotePath) + "/").NewWriter(ctx)
	objWriter.ContentType = directoryContentType
	if closeErr := objWriter.Close(); closeErr != nil {
		return gcsError("MKDIR", remotePath, closeErr)
	}
	return nil
}

func (s *GCSTransport) Copy(ctx context.Context, container, destination, source string) error {
	bucket := s.Client.Bucket(container)
	src := bucket.Object(gcsKey(source))
	dst := bucket.Object(gcsKey(destination))

	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return gcsError("COPY", source, err)
	}

	return nil
}

// Merge composes the segments in rounds of at most 32 sources until one
// object is left, then moves it into place.
func (s *GCSTransport) Merge(ctx context.Context, container, destination, segmentPrefix string) error {
	bucket := s.Client.Bucket(container)
	sources := make([]string, 0)
	objIter := bucket.Objects(ctx, &storage.Query{Prefix: gcsKey(segmentPrefix)})
	for {
		attrs, err := objIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return gcsError("MERGE", segmentPrefix, err)
		}
		sources = append(sources, attrs.Name)
	}
	sort.Strings(sources)

	key := gcsKey(destination)
	intermediates := make([]string, 0)
	for round := 0; len(sources) > gcsMaxComposeSources; round++ {
		next := make([]string, 0)
		for start := 0; start < len(sources); start += gcsMaxComposeSources {
			end := start + gcsMaxComposeSources
			if end > len(sources) {
				end = len(sources)
			}
			partName := fmt.Sprintf("%s.compose-%d-%d", key, round, start/gcsMaxComposeSources)
			if err := s.compose(ctx, bucket, partName, sources[start:end]); err != nil {
				return err
			}
			next = append(next, partName)
		}
		intermediates = append(intermediates, next...)
		sources = next
	}

	composeErr := s.compose(ctx, bucket, key, sources)
	for _, intermediate := range intermediates {
		if delErr := bucket.Object(intermediate).Delete(ctx); delErr != nil && composeErr == nil {
			composeErr = gcsError("MERGE", intermediate, delErr)
		}
	}

	return composeErr
}

func (s *GCSTransport) compose(ctx context.Context, bucket *storage.BucketHandle, target string, sources []string) error {
	handles := make([]*storage.ObjectHandle, 0, len(sources))
	for _, source := range sources {
		handles = append(handles, bucket.Object(source))
	}
	composer := bucket.Object(target).ComposerFrom(handles...)
	composer.ContentType = contentTypeFor(target)
	if _, err := composer.Run(ctx); err != nil {
		return gcsError("MERGE", target, err)
	}
	return nil
}

func (s *GCSTransport) PutSegment(ctx context.Context, container, remotePath string, body io.Reader, size int64) error {
	object := s.Client.Bucket(container).Object(gcsKey(remotePath))
	objWriter := object.NewWriter(ctx)
	objWriter.ContentType = "application/octet-stream"
	if _, uploadErr := io.Copy(objWriter, body); uploadErr != nil {
		objWriter.Close()
		return gcsError("PUT", remotePath, uploadErr)
	}
	if closeErr := objWriter.Close(); closeErr != nil {
		return gcsError("PUT", remotePath, closeErr)
	}

	return nil
}
