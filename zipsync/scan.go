package zipsync

import (
	"cmp"
	"fmt"
	"slices"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Scan locates every local file header, central directory header and the
// end of central directory record in data. It only fails when the archive
// cannot be interpreted at all, see ErrMalformedContainer; truncated records
// and undecodable names are reported as Warnings instead.
func Scan(data []byte) (*Layout, error) {
	eocd, err := FindEOCD(data)
	if err != nil {
		return nil, err
	}

	layout := &Layout{Size: len(data), EOCD: *eocd}

	var warnings []Warning
	layout.Centrals, warnings = ScanCentral(data, eocd)
	layout.Warnings = append(layout.Warnings, warnings...)

	layout.Locals, warnings = ScanLocal(data)
	layout.Warnings = append(layout.Warnings, warnings...)

	layout.Locals, warnings = resolveLocals(data, layout.Locals, layout.Centrals)
	layout.Warnings = append(layout.Warnings, warnings...)

	return layout, nil
}

// resolveLocals reads the local file header that each central record
// points at when the forward scan did not reach it, e.g. because it
// walked into a stored nested archive whose local sizes were deferred to
// a data descriptor. Scanned records that then fall inside a linked
// entry's payload are dropped. The result is ordered by offset.
func resolveLocals(data []byte, locals []LocalRecord, centrals []CentralRecord) ([]LocalRecord, []Warning) {
	var (
		warnings []Warning
		at       = map[int]int{}
	)
	for i, local := range locals {
		at[local.Offset] = i
	}

	for _, central := range centrals {
		pos := int(central.LocalHeaderOffset)
		if _, ok := at[pos]; ok || pos+4 > len(data) || le.Uint32(data[pos:]) != LocalHeaderSignature {
			continue
		}

		rec, warning := readLocal(data, pos)
		if rec == nil || rec.Name != central.Name {
			continue
		}

		if warning != nil {
			warnings = append(warnings, *warning)
		}

		at[pos] = len(locals)
		locals = append(locals, *rec)
	}

	type span struct{ start, end int }
	var (
		payloads []span
		linked   = map[int]bool{}
	)
	for _, central := range centrals {
		i, ok := at[int(central.LocalHeaderOffset)]
		if !ok || locals[i].Name != central.Name {
			continue
		}

		linked[locals[i].Offset] = true
		start := locals[i].HeaderEnd()
		payloads = append(payloads, span{start, start + int(central.CompressedSize)})
	}

	locals = slices.DeleteFunc(locals, func(local LocalRecord) bool {
		if linked[local.Offset] {
			return false
		}

		for _, payload := range payloads {
			if local.Offset >= payload.start && local.Offset < payload.end {
				return true
			}
		}

		return false
	})

	slices.SortFunc(locals, func(a, b LocalRecord) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	return locals, warnings
}

// FindEOCD searches backward from the end of data for the end of central
// directory record. Only the trailing min(len(data), 65535+22) bytes are
// searched. The last occurrence of the signature whose comment length
// reaches exactly to the end of data wins; failing that, the last
// occurrence of the signature at all.
func FindEOCD(data []byte) (*EOCDRecord, error) {
	if len(data) < eocdLen {
		return nil, fmt.Errorf("%w: %d bytes is too short to hold an end of central directory record", ErrMalformedContainer, len(data))
	}

	var (
		window = min(len(data), maxCommentLen+eocdLen)
		lowest = len(data) - window
		found  *EOCDRecord
	)
	for i := len(data) - eocdLen; i >= lowest; i-- {
		if le.Uint32(data[i:]) != EOCDSignature {
			continue
		}

		eocd := readEOCD(data, i)
		if eocd.Offset+eocdLen+int(eocd.CommentLength) == len(data) {
			found = eocd
			break
		} else if found == nil {
			found = eocd
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: end of central directory signature not found in the trailing %d bytes", ErrMalformedContainer, window)
	}

	if int(found.CentralDirectoryOffset) > len(data) {
		return nil, fmt.Errorf("%w: central directory offset %d is outside of %d bytes", ErrMalformedContainer, found.CentralDirectoryOffset, len(data))
	}

	return found, nil
}

func readEOCD(data []byte, pos int) *EOCDRecord {
	h := data[pos : pos+eocdLen]
	return &EOCDRecord{
		Offset:                 pos,
		Entries:                le.Uint16(h[eocdEntriesOff:]),
		CentralDirectorySize:   le.Uint32(h[eocdCentralSizeOff:]),
		CentralDirectoryOffset: le.Uint32(h[eocdCentralOffsetOff:]),
		CommentLength:          le.Uint16(h[eocdCommentLenOff:]),
	}
}

// ScanLocal walks data from the start looking for local file headers.
// Bytes that do not begin a record are stepped over one at a time, so
// extraneous prefixes and gaps between entries are tolerated. After a
// header is read, its name, extra field and compressed payload are skipped.
// Scanning stops at the first central directory or end of central
// directory signature.
func ScanLocal(data []byte) ([]LocalRecord, []Warning) {
	var (
		records  []LocalRecord
		warnings []Warning
	)
	for pos := 0; pos+4 <= len(data); {
		switch le.Uint32(data[pos:]) {
		case CentralHeaderSignature, EOCDSignature:
			return records, warnings
		case LocalHeaderSignature:
		default:
			pos++
			continue
		}

		rec, warning := readLocal(data, pos)
		if warning != nil {
			warnings = append(warnings, *warning)
		}

		if rec == nil {
			pos++
			continue
		}

		records = append(records, *rec)
		pos = min(rec.HeaderEnd()+int(rec.CompressedSize), len(data))
	}

	return records, warnings
}

func readLocal(data []byte, pos int) (*LocalRecord, *Warning) {
	if pos+localHeaderLen > len(data) {
		return nil, truncated(pos, "local file header")
	}

	h := data[pos : pos+localHeaderLen]
	rec := &LocalRecord{
		Offset:      pos,
		Flags:       le.Uint16(h[localFlagsOff:]),
		NameLength:  le.Uint16(h[localNameLenOff:]),
		ExtraLength: le.Uint16(h[localExtraLenOff:]),
		Fields: Fields{
			Method:           le.Uint16(h[localMethodOff:]),
			CRC32:            le.Uint32(h[localCRCOff:]),
			CompressedSize:   le.Uint32(h[localCRCOff+compressedSizeDelta:]),
			UncompressedSize: le.Uint32(h[localCRCOff+uncompressedSizeDelta:]),
		},
	}

	nameEnd := pos + localHeaderLen + int(rec.NameLength)
	if nameEnd > len(data) {
		return nil, truncated(pos, "local file header name")
	}

	var ok bool
	rec.Name, ok = decodeName(data[pos+localHeaderLen : nameEnd])
	if !ok {
		return rec, undecodable(pos, rec.Name)
	}

	return rec, nil
}

// ScanCentral walks the central directory starting at the offset
// recorded in eocd, one length-prefixed record at a time. It stops at
// the first position that does not hold a central directory signature.
func ScanCentral(data []byte, eocd *EOCDRecord) ([]CentralRecord, []Warning) {
	var (
		records  []CentralRecord
		warnings []Warning
	)
	for pos := int(eocd.CentralDirectoryOffset); pos+4 <= len(data); {
		if le.Uint32(data[pos:]) != CentralHeaderSignature {
			break
		}

		if pos+centralHeaderLen > len(data) {
			warnings = append(warnings, *truncated(pos, "central directory header"))
			break
		}

		h := data[pos : pos+centralHeaderLen]
		rec := CentralRecord{
			Offset:            pos,
			Flags:             le.Uint16(h[centralFlagsOff:]),
			NameLength:        le.Uint16(h[centralNameLenOff:]),
			ExtraLength:       le.Uint16(h[centralExtraLenOff:]),
			CommentLength:     le.Uint16(h[centralCommentLenOff:]),
			LocalHeaderOffset: le.Uint32(h[centralLocalOffsetOff:]),
			Fields: Fields{
				Method:           le.Uint16(h[centralMethodOff:]),
				CRC32:            le.Uint32(h[centralCRCOff:]),
				CompressedSize:   le.Uint32(h[centralCRCOff+compressedSizeDelta:]),
				UncompressedSize: le.Uint32(h[centralCRCOff+uncompressedSizeDelta:]),
			},
		}

		nameEnd := pos + centralHeaderLen + int(rec.NameLength)
		if nameEnd > len(data) {
			warnings = append(warnings, *truncated(pos, "central directory header name"))
			break
		}

		var ok bool
		if rec.Name, ok = decodeName(data[pos+centralHeaderLen : nameEnd]); !ok {
			warnings = append(warnings, *undecodable(pos, rec.Name))
		}

		records = append(records, rec)
		pos += rec.Len()
	}

	return records, warnings
}

// decodeName decodes a stored filename as UTF-8, replacing invalid
// sequences with U+FFFD. It reports whether the name was valid.
func decodeName(b []byte) (string, bool) {
	if utf8.Valid(b) {
		return string(b), true
	}

	// The decoder substitutes U+FFFD for invalid sequences rather than failing.
	name, _ := unicode.UTF8.NewDecoder().Bytes(b)
	return string(name), false
}

func truncated(pos int, what string) *Warning {
	return &Warning{
		Kind:    WarningTruncatedRecord,
		Offset:  pos,
		Message: what + " runs past the end of the archive",
	}
}

func undecodable(pos int, name string) *Warning {
	return &Warning{
		Kind:    WarningFilenameDecode,
		Offset:  pos,
		Name:    name,
		Message: "name is not valid UTF-8",
	}
}
