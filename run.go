package rip

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/frantjc/rip/internal/riperr"
	"github.com/frantjc/rip/internal/ripregexp"
	"github.com/frantjc/rip/zipsync"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is a single synchronization of a derived archive against its
// reference. Reference, Derived and Output are keys into a Store.
type Run struct {
	ID              string          `json:"id" yaml:"id"`
	Status          RunStatus       `json:"status,omitempty" yaml:"status,omitempty"`
	Reference       string          `json:"reference" yaml:"reference"`
	Derived         string          `json:"derived" yaml:"derived"`
	Output          string          `json:"output,omitempty" yaml:"output,omitempty"`
	ReferenceDigest digest.Digest   `json:"referenceDigest,omitempty" yaml:"referenceDigest,omitempty"`
	DerivedDigest   digest.Digest   `json:"derivedDigest,omitempty" yaml:"derivedDigest,omitempty"`
	OutputDigest    digest.Digest   `json:"outputDigest,omitempty" yaml:"outputDigest,omitempty"`
	Started         time.Time       `json:"started,omitempty" yaml:"started,omitempty"`
	Finished        time.Time       `json:"finished,omitempty" yaml:"finished,omitempty"`
	Error           string          `json:"error,omitempty" yaml:"error,omitempty"`
	Report          *zipsync.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

// NewRun returns a pending Run with a new ID that writes
// its output next to derived. See OutputName.
func NewRun(reference, derived string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Status:    RunPending,
		Reference: reference,
		Derived:   derived,
		Output:    OutputName(derived),
	}
}

// OutputName returns the default name of the synchronized
// copy of the archive at name, e.g. app.apks -> app_rip.apk.
func OutputName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "_rip.apk"
}

// IsSplit reports whether name looks like a split APK bundle
// that must be merged before it can be decoded.
func IsSplit(name string) bool {
	return ripregexp.IsSplit(name)
}

func ValidateRun(run *Run) error {
	errs := []error{}

	if run.ID != "" && !ripregexp.IsUUID(run.ID) {
		errs = append(errs, fmt.Errorf("invalid run ID %s", run.ID))
	}

	if run.Reference == "" {
		errs = append(errs, fmt.Errorf("reference is required"))
	}

	if run.Derived == "" {
		errs = append(errs, fmt.Errorf("derived is required"))
	}

	if run.Output != "" && (run.Output == run.Reference || run.Output == run.Derived) {
		errs = append(errs, fmt.Errorf("output %s would overwrite an input", run.Output))
	}

	return riperr.HTTPStatusCodeError(errors.Join(errs...), http.StatusBadRequest)
}

// SynchronizeRun reads run's reference and derived archives from store,
// synchronizes them and writes the result to run.Output. run is updated
// with digests, timing, the Report and the outcome. Nothing is written
// when the synchronization fails.
func SynchronizeRun(ctx context.Context, store Store, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if run.Output == "" {
		run.Output = OutputName(run.Derived)
	}

	if err := ValidateRun(run); err != nil {
		return err
	}

	var (
		log = LoggerFrom(ctx).WithValues("run", run.ID)
	)
	ctx = WithLogger(ctx, log)

	log.V(1).Info("synchronizing " + run.Derived + " against " + run.Reference)

	run.Started = time.Now()
	err := synchronizeRun(ctx, store, run)
	run.Finished = time.Now()

	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		return err
	}

	run.Status = RunSucceeded
	run.Error = ""

	log.Info("wrote "+run.Output, "patched", run.Report.Patched, "skipped", run.Report.Skipped, "duration", run.Finished.Sub(run.Started).String())

	return nil
}

func synchronizeRun(ctx context.Context, store Store, run *Run) error {
	reference, err := store.ReadAll(ctx, run.Reference)
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}
	run.ReferenceDigest = digest.FromBytes(reference)

	derived, err := store.ReadAll(ctx, run.Derived)
	if err != nil {
		return fmt.Errorf("read derived: %w", err)
	}
	run.DerivedDigest = digest.FromBytes(derived)

	output, report, err := zipsync.Synchronize(ctx, reference, derived)
	run.Report = report
	if err != nil {
		archiveErr := &zipsync.ArchiveError{}
		if errors.As(err, &archiveErr) {
			name := run.Reference
			if archiveErr.Archive == zipsync.ArchiveDerived {
				name = run.Derived
			}

			return fmt.Errorf("%s: %w", name, err)
		}

		return err
	}
	run.OutputDigest = digest.FromBytes(output)

	if err = store.WriteAll(ctx, run.Output, output); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
