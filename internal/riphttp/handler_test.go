package riphttp_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/internal/ripblob"
	"github.com/frantjc/rip/internal/riperr"
	"github.com/frantjc/rip/internal/riphttp"
	"github.com/frantjc/rip/internal/rippubsub"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/mempubsub"
	"gopkg.in/yaml.v3"
)

type testFile struct {
	Name  string
	CRC32 uint32
	Size  int
}

func testArchive(t *testing.T, files ...testFile) []byte {
	t.Helper()

	var (
		buf = new(bytes.Buffer)
		zw  = zip.NewWriter(buf)
	)
	for _, f := range files {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               f.Name,
			CRC32:              f.CRC32,
			CompressedSize64:   uint64(f.Size),
			UncompressedSize64: uint64(f.Size),
		})
		require.NoError(t, err)

		_, err = w.Write(bytes.Repeat([]byte{'x'}, f.Size))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return buf.Bytes()
}

var (
	reference = []testFile{
		{Name: "a.txt", CRC32: 0x1111, Size: 10},
		{Name: "b.txt", CRC32: 0x2222, Size: 20},
	}
	derived = []testFile{
		{Name: "a.txt", CRC32: 0x9999, Size: 10},
		{Name: "b.txt", CRC32: 0x2222, Size: 20},
		{Name: "c.txt", CRC32: 0x3333, Size: 5},
	}
)

type testServer struct {
	*rip.Client
	Bucket *blob.Bucket
	Topic  *pubsub.Topic
	URL    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	var (
		bucket = memblob.OpenBucket(nil)
		topic  = mempubsub.NewTopic()
		srv    = httptest.NewServer(riphttp.NewHandler(bucket, topic))
	)
	t.Cleanup(func() {
		srv.Close()
		_ = topic.Shutdown(context.Background())
		_ = bucket.Close()
	})

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)

	return &testServer{
		Client: &rip.Client{HTTPClient: srv.Client(), Base: base},
		Bucket: bucket,
		Topic:  topic,
		URL:    srv.URL,
	}
}

func TestSynchronize(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newTestServer(t)
	)

	run, err := srv.Synchronize(ctx, bytes.NewReader(testArchive(t, reference...)), bytes.NewReader(testArchive(t, derived...)))
	require.NoError(t, err)

	assert.Equal(t, rip.RunSucceeded, run.Status)
	require.NotNil(t, run.Report)
	assert.Equal(t, 1, run.Report.Patched)
	assert.Equal(t, 1, run.Report.Skipped)

	got, err := srv.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.OutputDigest, got.OutputDigest)

	rc, err := srv.GetOutput(ctx, run.ID)
	require.NoError(t, err)
	defer rc.Close()

	output, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Len(t, output, len(testArchive(t, derived...)))

	zr, err := zip.NewReader(bytes.NewReader(output), int64(len(output)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	assert.Equal(t, uint32(0x1111), zr.File[0].CRC32)
	assert.Equal(t, uint32(0x2222), zr.File[1].CRC32)
	assert.Equal(t, uint32(0x3333), zr.File[2].CRC32)
}

func TestSynchronizeMalformed(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newTestServer(t)
	)

	_, err := srv.Synchronize(ctx, bytes.NewReader(testArchive(t, reference...)), strings.NewReader("not an archive at all"))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, riperr.HTTPStatusCode(err))
	assert.Contains(t, err.Error(), "malformed container")
}

func TestEnqueue(t *testing.T) {
	var (
		ctx, cancel  = context.WithCancel(context.Background())
		srv          = newTestServer(t)
		subscription = mempubsub.NewSubscription(srv.Topic, time.Minute)
		errC         = make(chan error, 1)
	)
	defer cancel()

	run, err := srv.Enqueue(ctx, bytes.NewReader(testArchive(t, reference...)), bytes.NewReader(testArchive(t, derived...)))
	require.NoError(t, err)
	assert.Equal(t, rip.RunPending, run.Status)

	_, err = srv.GetOutput(ctx, run.ID)
	assert.Equal(t, http.StatusConflict, riperr.HTTPStatusCode(err))

	go func() {
		errC <- rippubsub.Receive(ctx, srv.Bucket, subscription)
	}()

	assert.Eventually(t, func() bool {
		got, err := srv.GetRun(ctx, run.ID)
		return err == nil && got.Status == rip.RunSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	rc, err := srv.GetOutput(ctx, run.ID)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	cancel()
	assert.Error(t, <-errC)
}

func TestEnqueueJSON(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newTestServer(t)
	)

	require.NoError(t, srv.Bucket.WriteAll(ctx, "in/reference.apk", testArchive(t, reference...), nil))
	require.NoError(t, srv.Bucket.WriteAll(ctx, "in/derived.apk", testArchive(t, derived...), nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/v1/synchronize", strings.NewReader(`{"reference":"in/reference.apk","derived":"in/derived.apk"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", rip.ContentTypeJSON)
	req.Header.Set("Accept", rip.ContentTypeYAML)

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, rip.ContentTypeYAML, res.Header.Get("Content-Type"))

	run := &rip.Run{}
	require.NoError(t, yaml.NewDecoder(res.Body).Decode(run))
	assert.Equal(t, rip.RunSucceeded, run.Status)
	assert.Equal(t, ripblob.OutputKey(run.ID), run.Output)

	exists, err := srv.Bucket.Exists(ctx, run.Output)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSynchronizeJSONKeys(t *testing.T) {
	var (
		ctx   = context.Background()
		srv   = newTestServer(t)
		other = uuid.NewString()
	)

	require.NoError(t, srv.Bucket.WriteAll(ctx, "in/reference.apk", testArchive(t, reference...), nil))
	require.NoError(t, srv.Bucket.WriteAll(ctx, "in/derived.apk", testArchive(t, derived...), nil))
	require.NoError(t, srv.Bucket.WriteAll(ctx, ripblob.RunKey(other), []byte(`{"id":"`+other+`"}`), nil))

	for _, body := range []string{
		`{"reference":"in/reference.apk","derived":"in/derived.apk","output":"` + ripblob.RunKey(other) + `"}`,
		`{"reference":"in/reference.apk","derived":"in/derived.apk","output":"in/reference.apk.bak"}`,
		`{"reference":"` + ripblob.RunKey(other) + `","derived":"in/derived.apk"}`,
	} {
		for _, endpoint := range []string{"/api/v1/synchronize", "/api/v1/runs"} {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+endpoint, strings.NewReader(body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", rip.ContentTypeJSON)

			res, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			_ = res.Body.Close()

			assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
		}
	}

	record, err := srv.Bucket.ReadAll(ctx, ripblob.RunKey(other))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"`+other+`"}`, string(record))

	exists, err := srv.Bucket.Exists(ctx, "in/reference.apk.bak")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetRunNotFound(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newTestServer(t)
	)

	_, err := srv.GetRun(ctx, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, riperr.HTTPStatusCode(err))

	res, err := http.Get(srv.URL + "/api/v1/runs/not-a-uuid")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestUnsupportedMediaType(t *testing.T) {
	srv := newTestServer(t)

	res, err := http.Post(srv.URL+"/api/v1/runs", "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, res.StatusCode)
}

func TestProbes(t *testing.T) {
	var (
		ctx = context.Background()
		srv = newTestServer(t)
	)

	assert.NoError(t, srv.Healthz(ctx))
	assert.NoError(t, srv.Readyz(ctx))
}
