package zipsync

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedContainer is returned when an archive cannot be interpreted at all:
	// no end of central directory record could be found within the trailing comment
	// bound, or it points the central directory outside of the archive.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrOffsetOutOfBounds is wrapped by a FieldError when a field write
	// would land outside of the archive.
	ErrOffsetOutOfBounds = errors.New("offset out of bounds")

	// ErrLengthChanged is returned when patching would change the length of an archive.
	ErrLengthChanged = errors.New("patched archive length changed")
)

// Archive names the role an archive plays in a synchronization.
type Archive string

const (
	ArchiveReference Archive = "reference"
	ArchiveDerived   Archive = "derived"
)

// ArchiveError attributes an error to one of the archives of a synchronization.
type ArchiveError struct {
	Archive Archive
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s archive: %v", e.Archive, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Header names which of an entry's two headers a field belongs to.
type Header string

const (
	HeaderLocal   Header = "local"
	HeaderCentral Header = "central"
)

// Field names a single synchronized field.
type Field string

const (
	FieldCRC32            Field = "crc32"
	FieldCompressedSize   Field = "compressedSize"
	FieldUncompressedSize Field = "uncompressedSize"
	FieldMethod           Field = "method"
)

// FieldError is a single field write that was skipped because it would
// have landed outside of the archive.
type FieldError struct {
	Name   string `json:"name" yaml:"name"`
	Header Header `json:"header" yaml:"header"`
	Field  Field  `json:"field" yaml:"field"`
	Offset int    `json:"offset" yaml:"offset"`
	Width  int    `json:"width" yaml:"width"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s %s at %d+%d: %v", e.Name, e.Header, e.Field, e.Offset, e.Width, ErrOffsetOutOfBounds)
}

func (e *FieldError) Unwrap() error {
	return ErrOffsetOutOfBounds
}

// WarningKind classifies a non-fatal condition found while reading an archive.
type WarningKind string

const (
	WarningTruncatedRecord WarningKind = "TruncatedRecord"
	WarningFilenameDecode  WarningKind = "FilenameDecode"
	WarningShadowedEntry   WarningKind = "ShadowedEntry"
	WarningCountMismatch   WarningKind = "CountMismatch"
)

// Warning is a non-fatal condition found while reading an archive.
type Warning struct {
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Archive Archive     `json:"archive,omitempty" yaml:"archive,omitempty"`
	Offset  int         `json:"offset" yaml:"offset"`
	Name    string      `json:"name,omitempty" yaml:"name,omitempty"`
	Message string      `json:"message,omitempty" yaml:"message,omitempty"`
}

func (w Warning) String() string {
	s := fmt.Sprintf("%s at %d", w.Kind, w.Offset)
	if w.Name != "" {
		s += " " + w.Name
	}
	if w.Message != "" {
		s += ": " + w.Message
	}
	if w.Archive != "" {
		s = string(w.Archive) + ": " + s
	}
	return s
}
