package ripblob

import (
	"context"
	"io"

	"gocloud.dev/blob"
)

// Copy writes everything from r to key in bucket. Nothing is
// written if reading from r fails.
func Copy(ctx context.Context, bucket *blob.Bucket, key, contentType string, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, r); err != nil {
		// Canceling the Writer's context before Close aborts the write.
		cancel()
		_ = w.Close()
		return err
	}

	return w.Close()
}
