package zipsync

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
)

// Synchronize rewrites the crc32, size and compression method fields of
// every entry in derived that reference also has, so that they match
// reference. The returned archive has the same length as derived and
// differs from it only within those fields. derived is not modified.
//
// An archive that cannot be interpreted at all fails the whole operation
// with an *ArchiveError wrapping ErrMalformedContainer. Everything else
// degrades per entry and is recorded in the returned Report.
func Synchronize(ctx context.Context, reference, derived []byte) ([]byte, *Report, error) {
	log := logr.FromContextOrDiscard(ctx)

	referenceIndex, err := NewIndex(reference)
	if err != nil {
		return nil, nil, &ArchiveError{Archive: ArchiveReference, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	derivedIndex, err := NewIndex(derived)
	if err != nil {
		return nil, nil, &ArchiveError{Archive: ArchiveDerived, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	plan := NewPlan(referenceIndex, derivedIndex)
	log.V(2).Info("planned", "reference", referenceIndex.Len(), "derived", derivedIndex.Len(), "steps", plan.Len(), "patches", plan.Patches())

	patched, report, err := Apply(derived, plan)
	if err != nil {
		return nil, report, fmt.Errorf("apply: %w", err)
	}

	report.Observe(ArchiveReference, referenceIndex)
	report.Observe(ArchiveDerived, derivedIndex)

	for _, w := range report.Warnings {
		log.Info("warning "+w.String(), "kind", w.Kind, "archive", w.Archive)
	}

	for _, fe := range report.OutOfBounds {
		log.Info("skipped field write "+fe.Error())
	}

	for _, entry := range report.Entries {
		log.V(1).Info(string(entry.Action)+" "+entry.Name, "from", fmt.Sprintf("%08x", entry.From.CRC32), "to", fmt.Sprintf("%08x", entry.To.CRC32))
	}

	return patched, report, nil
}
