package ripblob

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/frantjc/rip"
	"gocloud.dev/blob"
)

// Store is a rip.Store backed by a bucket.
type Store struct {
	Bucket *blob.Bucket
}

var _ rip.Store = &Store{}

func NewStore(bucket *blob.Bucket) *Store {
	return &Store{Bucket: bucket}
}

func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, error) {
	return s.Bucket.ReadAll(ctx, key)
}

func (s *Store) WriteAll(ctx context.Context, key string, data []byte) error {
	return s.Bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType(key)})
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case rip.ExtAPK:
		return rip.ContentTypeAPK
	case ".json":
		return rip.ContentTypeJSON
	}

	return "application/octet-stream"
}

// ReadRun reads the Run with the given ID.
func ReadRun(ctx context.Context, bucket *blob.Bucket, id string) (*rip.Run, error) {
	b, err := bucket.ReadAll(ctx, RunKey(id))
	if err != nil {
		return nil, err
	}

	run := &rip.Run{}
	if err = json.Unmarshal(b, run); err != nil {
		return nil, err
	}

	return run, nil
}

// WriteRun records run under its ID.
func WriteRun(ctx context.Context, bucket *blob.Bucket, run *rip.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}

	return bucket.WriteAll(ctx, RunKey(run.ID), b, &blob.WriterOptions{ContentType: rip.ContentTypeJSON})
}
