package rip_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/internal/riperr"
	"github.com/frantjc/rip/zipsync"
	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFile struct {
	Name  string
	CRC32 uint32
	Size  int
}

func writeTestArchive(t *testing.T, name string, files ...testFile) []byte {
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

	if name != "" {
		require.NoError(t, os.WriteFile(name, buf.Bytes(), 0o644))
	}

	return buf.Bytes()
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "app_rip.apk", rip.OutputName("app.apk"))
	assert.Equal(t, "dir/app_rip.apk", rip.OutputName("dir/app.xapk"))
	assert.Equal(t, "app_rip.apk", rip.OutputName("app"))
}

func TestIsSplit(t *testing.T) {
	assert.True(t, rip.IsSplit("app.apks"))
	assert.True(t, rip.IsSplit("APP.XAPK"))
	assert.True(t, rip.IsSplit("app.apkm"))
	assert.False(t, rip.IsSplit("app.apk"))
}

func TestValidateRun(t *testing.T) {
	assert.NoError(t, rip.ValidateRun(rip.NewRun("a.apk", "b.apk")))

	err := rip.ValidateRun(&rip.Run{ID: "nope", Derived: "b.apk", Output: "b.apk"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, riperr.HTTPStatusCode(err))
	assert.Contains(t, err.Error(), "invalid run ID")
	assert.Contains(t, err.Error(), "reference is required")
	assert.Contains(t, err.Error(), "would overwrite an input")
}

func TestSynchronizeRun(t *testing.T) {
	var (
		ctx       = context.Background()
		dir       = t.TempDir()
		reference = writeTestArchive(t, filepath.Join(dir, "reference.apk"),
			testFile{Name: "a.txt", CRC32: 0x1111, Size: 10},
			testFile{Name: "b.txt", CRC32: 0x2222, Size: 20},
		)
		derived = writeTestArchive(t, filepath.Join(dir, "derived.apk"),
			testFile{Name: "a.txt", CRC32: 0x9999, Size: 10},
			testFile{Name: "b.txt", CRC32: 0x2222, Size: 20},
			testFile{Name: "c.txt", CRC32: 0x3333, Size: 5},
		)
		store = &rip.FSStore{Dir: dir}
		run   = rip.NewRun("reference.apk", "derived.apk")
	)

	require.NoError(t, rip.SynchronizeRun(ctx, store, run))

	assert.Equal(t, rip.RunSucceeded, run.Status)
	assert.Equal(t, "derived_rip.apk", run.Output)
	assert.Empty(t, run.Error)
	assert.False(t, run.Finished.Before(run.Started))
	assert.Equal(t, digest.FromBytes(reference), run.ReferenceDigest)
	assert.Equal(t, digest.FromBytes(derived), run.DerivedDigest)
	require.NotNil(t, run.Report)
	assert.Equal(t, 1, run.Report.Patched)
	assert.Equal(t, 1, run.Report.Skipped)

	output, err := os.ReadFile(filepath.Join(dir, "derived_rip.apk"))
	require.NoError(t, err)
	assert.Len(t, output, len(derived))
	assert.Equal(t, digest.FromBytes(output), run.OutputDigest)

	// The derived archive is left alone.
	onDisk, err := os.ReadFile(filepath.Join(dir, "derived.apk"))
	require.NoError(t, err)
	assert.Equal(t, derived, onDisk)

	zr, err := zip.NewReader(bytes.NewReader(output), int64(len(output)))
	require.NoError(t, err)
	for _, f := range zr.File {
		switch f.Name {
		case "a.txt":
			assert.Equal(t, uint32(0x1111), f.CRC32)
		case "c.txt":
			assert.Equal(t, uint32(0x3333), f.CRC32)
		}
	}
}

func TestSynchronizeRunMalformed(t *testing.T) {
	var (
		ctx   = context.Background()
		dir   = t.TempDir()
		store = &rip.FSStore{Dir: dir}
		run   = rip.NewRun("reference.apk", "derived.apk")
	)

	writeTestArchive(t, filepath.Join(dir, "reference.apk"), testFile{Name: "a.txt", CRC32: 1, Size: 1})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "derived.apk"), []byte("not an archive at all"), 0o644))

	err := rip.SynchronizeRun(ctx, store, run)
	assert.ErrorIs(t, err, zipsync.ErrMalformedContainer)
	assert.Contains(t, err.Error(), "derived.apk")
	assert.Equal(t, rip.RunFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	assert.NoFileExists(t, filepath.Join(dir, "derived_rip.apk"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSynchronizeRunMissingInput(t *testing.T) {
	var (
		store = &rip.FSStore{Dir: t.TempDir()}
		run   = rip.NewRun("reference.apk", "derived.apk")
	)

	err := rip.SynchronizeRun(context.Background(), store, run)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, rip.RunFailed, run.Status)
}
