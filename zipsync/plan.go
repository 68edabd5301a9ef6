package zipsync

// Action is what a Plan does with a single derived entry.
type Action string

const (
	// ActionPatch writes the reference's fields over the derived entry's headers.
	ActionPatch Action = "Patch"
	// ActionSkipNotInReference leaves an entry alone that only the derived archive has.
	ActionSkipNotInReference Action = "SkipNotInReference"
	// ActionSkipOffsetOutOfBounds leaves an entry alone whose headers cannot be written.
	ActionSkipOffsetOutOfBounds Action = "SkipOffsetOutOfBounds"
)

// Step is a single planned action. Fields holds the values to write, always
// taken from the reference archive; the offsets are always the derived
// archive's. Previous holds the derived archive's values for reporting.
type Step struct {
	Fields
	Name             string
	Action           Action
	LocalCRCOffset   int
	CentralCRCOffset int
	Previous         Fields
}

// Plan is the minimal ordered set of actions that brings a derived archive's
// metadata back in line with a reference archive's. Entries that already
// match are left out.
type Plan struct {
	Steps []Step
}

// NewPlan diffs derived against reference.
func NewPlan(reference, derived *Index) *Plan {
	plan := &Plan{}

	for i := range derived.Entries {
		entry := &derived.Entries[i]

		step := Step{
			Name:             entry.Name,
			LocalCRCOffset:   entry.LocalCRCOffset,
			CentralCRCOffset: entry.CentralCRCOffset,
			Previous:         entry.Fields,
		}

		ref, ok := reference.Lookup(entry.Name)
		switch {
		case !ok:
			step.Action = ActionSkipNotInReference
			step.Fields = entry.Fields
		case entry.Current(ref.Fields):
			continue
		case !fits(entry.LocalCRCOffset, derived.Size) && !fits(entry.CentralCRCOffset, derived.Size):
			step.Action = ActionSkipOffsetOutOfBounds
			step.Fields = ref.Fields
		default:
			step.Action = ActionPatch
			step.Fields = ref.Fields
		}

		plan.Steps = append(plan.Steps, step)
	}

	return plan
}

// Len is the number of planned steps, skips included.
func (p *Plan) Len() int {
	return len(p.Steps)
}

// Patches is the number of steps that will write to the derived archive.
func (p *Plan) Patches() int {
	n := 0
	for _, step := range p.Steps {
		if step.Action == ActionPatch {
			n++
		}
	}

	return n
}

// fits reports whether every field of a header whose crc32 is at crcOffset
// lies within size bytes.
func fits(crcOffset, size int) bool {
	return crcOffset != NoOffset && crcOffset+methodDelta >= 0 && crcOffset+uncompressedSizeDelta+4 <= size
}
