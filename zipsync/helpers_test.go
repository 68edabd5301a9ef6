package zipsync

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// testFile describes one stored entry of a test archive. CRC32 is written
// as given, it is not computed from the content.
type testFile struct {
	Name   string
	CRC32  uint32
	Size   int
	Method uint16
}

// buildTestArchive writes files into a new archive without data
// descriptors, so local and central headers both carry the given fields.
func buildTestArchive(tb testing.TB, comment string, files ...testFile) []byte {
	tb.Helper()

	var (
		buf = new(bytes.Buffer)
		zw  = zip.NewWriter(buf)
	)
	for _, f := range files {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               f.Name,
			Method:             f.Method,
			CRC32:              f.CRC32,
			CompressedSize64:   uint64(f.Size),
			UncompressedSize64: uint64(f.Size),
		})
		require.NoError(tb, err)

		_, err = w.Write(bytes.Repeat([]byte{'x'}, f.Size))
		require.NoError(tb, err)
	}

	if comment != "" {
		require.NoError(tb, zw.SetComment(comment))
	}

	require.NoError(tb, zw.Close())

	return buf.Bytes()
}

// readTestArchive reads the central directory of data back with an
// independent ZIP implementation.
func readTestArchive(tb testing.TB, data []byte) map[string]*zip.File {
	tb.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(tb, err)

	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}

	return files
}

// patchedRanges returns every byte position a Patch entry of report was allowed to touch.
func patchedRanges(report *Report) map[int]bool {
	allowed := map[int]bool{}
	for _, entry := range report.Entries {
		if entry.Action != ActionPatch {
			continue
		}

		for _, off := range []int{entry.LocalCRCOffset, entry.CentralCRCOffset} {
			if off == NoOffset {
				continue
			}

			for i := off; i < off+12; i++ {
				allowed[i] = true
			}

			for i := off + methodDelta; i < off+methodDelta+2; i++ {
				allowed[i] = true
			}
		}
	}

	return allowed
}

// buildDescriptorArchive stores each name with its content the way a
// streaming writer does: local headers carry zero CRC and sizes, and the
// real values follow the payload in a data descriptor.
func buildDescriptorArchive(tb testing.TB, names []string, contents [][]byte) []byte {
	tb.Helper()

	var (
		buf = new(bytes.Buffer)
		zw  = zip.NewWriter(buf)
	)
	for i, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		require.NoError(tb, err)

		_, err = w.Write(contents[i])
		require.NoError(tb, err)
	}
	require.NoError(tb, zw.Close())

	return buf.Bytes()
}
