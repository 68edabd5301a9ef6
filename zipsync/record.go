package zipsync

import "encoding/binary"

// Record signatures, as they appear little-endian on disk ("PK\x03\x04" etc.).
const (
	LocalHeaderSignature   uint32 = 0x04034b50
	CentralHeaderSignature uint32 = 0x02014b50
	EOCDSignature          uint32 = 0x06054b50
)

const (
	localHeaderLen   = 30
	centralHeaderLen = 46
	eocdLen          = 22
	maxCommentLen    = 65535
)

// Field offsets relative to the start of each record.
// See https://pkware.cachefly.net/webdocs/casestudies/APPNOTE.TXT.
const (
	localFlagsOff    = 6
	localMethodOff   = 8
	localCRCOff      = 14
	localNameLenOff  = 26
	localExtraLenOff = 28

	centralFlagsOff       = 8
	centralMethodOff      = 10
	centralCRCOff         = 16
	centralNameLenOff     = 28
	centralExtraLenOff    = 30
	centralCommentLenOff  = 32
	centralLocalOffsetOff = 42

	eocdEntriesOff       = 10
	eocdCentralSizeOff   = 12
	eocdCentralOffsetOff = 16
	eocdCommentLenOff    = 20
)

// Both header kinds lay out crc32, compressed size and uncompressed size
// back to back, with the compression method 6 bytes ahead of the crc32.
const (
	compressedSizeDelta   = 4
	uncompressedSizeDelta = 8
	methodDelta           = -6
)

// NoOffset marks a header that is absent for an entry,
// e.g. a local header whose central directory record could not be joined.
const NoOffset = -1

var le = binary.LittleEndian

// Fields are the per-entry values that are synchronized.
type Fields struct {
	CRC32            uint32 `json:"crc32" yaml:"crc32"`
	CompressedSize   uint32 `json:"compressedSize" yaml:"compressedSize"`
	UncompressedSize uint32 `json:"uncompressedSize" yaml:"uncompressedSize"`
	Method           uint16 `json:"method" yaml:"method"`
}

// LocalRecord is a local file header located in an archive.
type LocalRecord struct {
	Fields
	Offset      int
	Name        string
	Flags       uint16
	NameLength  uint16
	ExtraLength uint16
}

// CRCOffset is the absolute position of the record's crc32 field.
func (r *LocalRecord) CRCOffset() int {
	return r.Offset + localCRCOff
}

// MethodOffset is the absolute position of the record's compression method field.
func (r *LocalRecord) MethodOffset() int {
	return r.Offset + localMethodOff
}

// HeaderEnd is the absolute position just past the record's name and extra field,
// i.e. where its payload begins.
func (r *LocalRecord) HeaderEnd() int {
	return r.Offset + localHeaderLen + int(r.NameLength) + int(r.ExtraLength)
}

// CentralRecord is a central directory header located in an archive.
type CentralRecord struct {
	Fields
	Offset            int
	Name              string
	Flags             uint16
	NameLength        uint16
	ExtraLength       uint16
	CommentLength     uint16
	LocalHeaderOffset uint32
}

// CRCOffset is the absolute position of the record's crc32 field.
func (r *CentralRecord) CRCOffset() int {
	return r.Offset + centralCRCOff
}

// MethodOffset is the absolute position of the record's compression method field.
func (r *CentralRecord) MethodOffset() int {
	return r.Offset + centralMethodOff
}

// Len is the length of the record including its variable-length parts.
func (r *CentralRecord) Len() int {
	return centralHeaderLen + int(r.NameLength) + int(r.ExtraLength) + int(r.CommentLength)
}

// EOCDRecord is the end of central directory record of an archive.
type EOCDRecord struct {
	Offset                 int
	Entries                uint16
	CentralDirectorySize   uint32
	CentralDirectoryOffset uint32
	CommentLength          uint16
}

// Layout is every structural record located in an archive, in scan order.
type Layout struct {
	Size     int
	Locals   []LocalRecord
	Centrals []CentralRecord
	EOCD     EOCDRecord
	Warnings []Warning
}
