package zipsync

import (
	"fmt"
	"slices"
)

// Entry is one indexed archive entry: its field values and where those
// fields live in the archive.
type Entry struct {
	Fields
	Name             string
	LocalCRCOffset   int
	CentralCRCOffset int
	Local            *LocalRecord
	Central          *CentralRecord
}

// Current reports whether every header present for the entry already
// holds want.
func (e *Entry) Current(want Fields) bool {
	if e.Local != nil && e.Local.Fields != want {
		return false
	}

	if e.Central != nil && e.Central.Fields != want {
		return false
	}

	return true
}

// Index maps entry names to their field values for a single archive.
// It is read-only once built.
type Index struct {
	Size          int
	Entries       []Entry
	Shadowed      []Warning
	Warnings      []Warning
	LocalCount    int
	CentralCount  int
	DeclaredCount int

	byName map[string]int
}

// NewIndex scans data and indexes it. See Scan and IndexLayout.
func NewIndex(data []byte) (*Index, error) {
	layout, err := Scan(data)
	if err != nil {
		return nil, err
	}

	return IndexLayout(layout), nil
}

// IndexLayout joins the local and central records of layout by name.
//
// A central record is linked to the local record at its local header offset
// when that record carries the same name, falling back to the first
// unclaimed local record of the same name. Entries are ordered as the
// central directory orders them, followed by local records that no central
// record claimed. When a name repeats, the first occurrence is indexed and
// the rest are recorded in Shadowed.
//
// Field values are taken from the central record when there is one, since
// local headers written with a trailing data descriptor carry zeros.
func IndexLayout(layout *Layout) *Index {
	var (
		index = &Index{
			Size:          layout.Size,
			Warnings:      slices.Clone(layout.Warnings),
			LocalCount:    len(layout.Locals),
			CentralCount:  len(layout.Centrals),
			DeclaredCount: int(layout.EOCD.Entries),
			byName:        map[string]int{},
		}
		claimed      = make([]bool, len(layout.Locals))
		localsAt     = map[int]int{}
		localsByName = map[string][]int{}
	)
	for i, local := range layout.Locals {
		localsAt[local.Offset] = i
		localsByName[local.Name] = append(localsByName[local.Name], i)
	}

	claimAt := func(central *CentralRecord) *LocalRecord {
		if i, ok := localsAt[int(central.LocalHeaderOffset)]; ok && !claimed[i] && layout.Locals[i].Name == central.Name {
			claimed[i] = true
			return &layout.Locals[i]
		}

		return nil
	}

	claimByName := func(name string) *LocalRecord {
		for _, i := range localsByName[name] {
			if !claimed[i] {
				claimed[i] = true
				return &layout.Locals[i]
			}
		}

		return nil
	}

	for i := range layout.Centrals {
		central := &layout.Centrals[i]

		if _, ok := index.byName[central.Name]; ok {
			// The shadowed entry's own local header must not be
			// mistaken for a local-only entry.
			claimAt(central)
			index.shadow(central.Name, central.Offset)
			continue
		}

		entry := Entry{
			Fields:           central.Fields,
			Name:             central.Name,
			LocalCRCOffset:   NoOffset,
			CentralCRCOffset: central.CRCOffset(),
			Central:          central,
		}

		local := claimAt(central)
		if local == nil {
			local = claimByName(central.Name)
		}

		if local != nil {
			entry.Local = local
			entry.LocalCRCOffset = local.CRCOffset()
		}

		index.add(entry)
	}

	for i := range layout.Locals {
		if claimed[i] {
			continue
		}

		local := &layout.Locals[i]

		if _, ok := index.byName[local.Name]; ok {
			index.shadow(local.Name, local.Offset)
			continue
		}

		index.add(Entry{
			Fields:           local.Fields,
			Name:             local.Name,
			LocalCRCOffset:   local.CRCOffset(),
			CentralCRCOffset: NoOffset,
			Local:            local,
		})
	}

	if index.CountMismatch() {
		index.Warnings = append(index.Warnings, Warning{
			Kind:    WarningCountMismatch,
			Offset:  layout.EOCD.Offset,
			Message: fmt.Sprintf("%d local file headers, %d central directory headers, %d declared", index.LocalCount, index.CentralCount, index.DeclaredCount),
		})
	}

	return index
}

func (x *Index) add(entry Entry) {
	x.byName[entry.Name] = len(x.Entries)
	x.Entries = append(x.Entries, entry)
}

func (x *Index) shadow(name string, offset int) {
	w := Warning{
		Kind:    WarningShadowedEntry,
		Offset:  offset,
		Name:    name,
		Message: "duplicate name, first occurrence wins",
	}
	x.Shadowed = append(x.Shadowed, w)
	x.Warnings = append(x.Warnings, w)
}

// Lookup returns the entry indexed under name.
func (x *Index) Lookup(name string) (*Entry, bool) {
	i, ok := x.byName[name]
	if !ok {
		return nil, false
	}

	return &x.Entries[i], true
}

// Names returns the indexed entry names in index order.
func (x *Index) Names() []string {
	names := make([]string, len(x.Entries))
	for i, entry := range x.Entries {
		names[i] = entry.Name
	}

	return names
}

// Len is the number of indexed entries.
func (x *Index) Len() int {
	return len(x.Entries)
}

// CountMismatch reports whether the archive's local and central directory
// record counts disagree with each other or with the end of central
// directory record.
func (x *Index) CountMismatch() bool {
	return x.LocalCount != x.CentralCount || x.CentralCount != x.DeclaredCount
}
