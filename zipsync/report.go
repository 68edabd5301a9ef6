package zipsync

// ReportEntry is the outcome for one derived entry that was not already
// in sync.
type ReportEntry struct {
	Name             string `json:"name" yaml:"name"`
	Action           Action `json:"action" yaml:"action"`
	LocalCRCOffset   int    `json:"localCrcOffset" yaml:"localCrcOffset"`
	CentralCRCOffset int    `json:"centralCrcOffset" yaml:"centralCrcOffset"`
	From             Fields `json:"from" yaml:"from"`
	To               Fields `json:"to" yaml:"to"`
}

// Report tallies the outcome of a synchronization. It is returned whether or
// not anything was patched.
type Report struct {
	Patched         int            `json:"patched" yaml:"patched"`
	Skipped         int            `json:"skipped" yaml:"skipped"`
	SkippedByReason map[Action]int `json:"skippedByReason,omitempty" yaml:"skippedByReason,omitempty"`
	Truncated       int            `json:"truncated" yaml:"truncated"`
	OutOfBounds     []FieldError   `json:"outOfBounds,omitempty" yaml:"outOfBounds,omitempty"`
	CountMismatch   bool           `json:"countMismatch,omitempty" yaml:"countMismatch,omitempty"`
	Entries         []ReportEntry  `json:"entries,omitempty" yaml:"entries,omitempty"`
	Warnings        []Warning      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// NewReport returns an empty Report.
func NewReport() *Report {
	return &Report{SkippedByReason: map[Action]int{}}
}

func (r *Report) patch(step Step) {
	r.Patched++
	r.Entries = append(r.Entries, reportEntry(step, ActionPatch))
}

func (r *Report) skip(step Step, reason Action) {
	r.Skipped++
	r.SkippedByReason[reason]++
	r.Entries = append(r.Entries, reportEntry(step, reason))
}

// Observe folds the warnings of an archive's Index into the Report.
func (r *Report) Observe(archive Archive, index *Index) {
	for _, w := range index.Warnings {
		w.Archive = archive
		if w.Kind == WarningTruncatedRecord {
			r.Truncated++
		}
		r.Warnings = append(r.Warnings, w)
	}

	if archive == ArchiveDerived && index.CountMismatch() {
		r.CountMismatch = true
	}
}

// Skips returns the entries that were skipped, for any reason.
func (r *Report) Skips() []ReportEntry {
	skips := []ReportEntry{}
	for _, entry := range r.Entries {
		if entry.Action != ActionPatch {
			skips = append(skips, entry)
		}
	}

	return skips
}

func reportEntry(step Step, action Action) ReportEntry {
	return ReportEntry{
		Name:             step.Name,
		Action:           action,
		LocalCRCOffset:   step.LocalCRCOffset,
		CentralCRCOffset: step.CentralCRCOffset,
		From:             step.Previous,
		To:               step.Fields,
	}
}
