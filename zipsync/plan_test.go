package zipsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T, files ...testFile) *Index {
	t.Helper()

	index, err := NewIndex(buildTestArchive(t, "", files...))
	require.NoError(t, err)

	return index
}

func TestPlan(t *testing.T) {
	var (
		reference = newTestIndex(t,
			testFile{Name: "a.txt", CRC32: 0x1111, Size: 10},
			testFile{Name: "b.txt", CRC32: 0x2222, Size: 20},
		)
		derived = newTestIndex(t,
			testFile{Name: "a.txt", CRC32: 0x9999, Size: 10},
			testFile{Name: "b.txt", CRC32: 0x2222, Size: 20},
			testFile{Name: "c.txt", CRC32: 0x3333, Size: 5},
		)
		plan = NewPlan(reference, derived)
	)

	require.Equal(t, 2, plan.Len())
	assert.Equal(t, 1, plan.Patches())

	a := plan.Steps[0]
	assert.Equal(t, "a.txt", a.Name)
	assert.Equal(t, ActionPatch, a.Action)
	assert.Equal(t, uint32(0x1111), a.CRC32)
	assert.Equal(t, uint32(0x9999), a.Previous.CRC32)

	c := plan.Steps[1]
	assert.Equal(t, "c.txt", c.Name)
	assert.Equal(t, ActionSkipNotInReference, c.Action)
}

func TestPlanWritesReferenceValuesAtDerivedOffsets(t *testing.T) {
	var (
		reference = newTestIndex(t,
			testFile{Name: "lib/arm64-v8a/libapp.so", CRC32: 0x5, Size: 50},
			testFile{Name: "classes.dex", CRC32: 0xaaaa, Size: 30, Method: 8},
		)
		derived = newTestIndex(t,
			testFile{Name: "classes.dex", CRC32: 0xbbbb, Size: 40},
		)
		plan = NewPlan(reference, derived)
	)

	require.Equal(t, 1, plan.Len())

	var (
		step        = plan.Steps[0]
		ref, _      = reference.Lookup("classes.dex")
		derived0, _ = derived.Lookup("classes.dex")
	)
	assert.Equal(t, ActionPatch, step.Action)
	assert.Equal(t, ref.Fields, step.Fields)
	assert.Equal(t, derived0.LocalCRCOffset, step.LocalCRCOffset)
	assert.Equal(t, derived0.CentralCRCOffset, step.CentralCRCOffset)
	assert.NotEqual(t, ref.LocalCRCOffset, step.LocalCRCOffset)
}

func TestPlanSizeAndMethodDifferences(t *testing.T) {
	var (
		reference = newTestIndex(t, testFile{Name: "a.txt", CRC32: 0x1, Size: 10, Method: 8})
		derived   = newTestIndex(t, testFile{Name: "a.txt", CRC32: 0x1, Size: 10})
		plan      = NewPlan(reference, derived)
	)

	require.Equal(t, 1, plan.Patches())
	assert.Equal(t, uint16(8), plan.Steps[0].Method)
}

func TestPlanWithoutCentralDirectory(t *testing.T) {
	var (
		reference = newTestIndex(t, testFile{Name: "a.txt", CRC32: 0x1, Size: 3})
		derived   = IndexLayout(&Layout{
			Size: 100,
			Locals: []LocalRecord{
				{Offset: 0, Name: "a.txt", Fields: Fields{CRC32: 0x2, CompressedSize: 3, UncompressedSize: 3}},
			},
		})
		plan = NewPlan(reference, derived)
	)

	require.Equal(t, 1, plan.Len())
	assert.Equal(t, ActionPatch, plan.Steps[0].Action)
	assert.Equal(t, localCRCOff, plan.Steps[0].LocalCRCOffset)
	assert.Equal(t, NoOffset, plan.Steps[0].CentralCRCOffset)
}

func TestPlanOffsetOutOfBounds(t *testing.T) {
	var (
		reference = newTestIndex(t, testFile{Name: "a.txt", CRC32: 0x1, Size: 3})
		derived   = &Index{
			Size: 20,
			Entries: []Entry{
				{Name: "a.txt", Fields: Fields{CRC32: 0x2}, LocalCRCOffset: 14, CentralCRCOffset: NoOffset, Local: &LocalRecord{}},
			},
			byName: map[string]int{"a.txt": 0},
		}
		plan = NewPlan(reference, derived)
	)

	require.Equal(t, 1, plan.Len())
	assert.Equal(t, ActionSkipOffsetOutOfBounds, plan.Steps[0].Action)
	assert.Equal(t, 0, plan.Patches())
}

func TestPlanNothingToDo(t *testing.T) {
	var (
		files = []testFile{
			{Name: "a.txt", CRC32: 0x1, Size: 3},
			{Name: "b.txt", CRC32: 0x2, Size: 4},
		}
		plan = NewPlan(newTestIndex(t, files...), newTestIndex(t, files...))
	)

	assert.Zero(t, plan.Len())
}
