package zipsync

import "bytes"

type fieldWrite struct {
	field  Field
	offset int
	width  int
	value  uint32
}

// Apply executes plan against a copy of derived. The returned archive is
// always exactly as long as derived: values are substituted at fixed offsets,
// nothing is inserted or removed. Field writes that would fall outside of
// the archive are skipped and recorded in the Report without affecting
// any other write.
func Apply(derived []byte, plan *Plan) ([]byte, *Report, error) {
	var (
		patched = bytes.Clone(derived)
		report  = NewReport()
	)
	for _, step := range plan.Steps {
		if step.Action != ActionPatch {
			report.skip(step, step.Action)
			continue
		}

		var (
			attempted int
			failed    []FieldError
		)
		for _, target := range []struct {
			header Header
			offset int
		}{
			{HeaderLocal, step.LocalCRCOffset},
			{HeaderCentral, step.CentralCRCOffset},
		} {
			if target.offset == NoOffset {
				continue
			}

			writes := fieldWrites(target.offset, step.Fields)
			attempted += len(writes)
			for _, write := range writes {
				if !put(patched, write) {
					failed = append(failed, FieldError{
						Name:   step.Name,
						Header: target.header,
						Field:  write.field,
						Offset: write.offset,
						Width:  write.width,
					})
				}
			}
		}

		report.OutOfBounds = append(report.OutOfBounds, failed...)
		if attempted > 0 && len(failed) == attempted {
			report.skip(step, ActionSkipOffsetOutOfBounds)
			continue
		}

		report.patch(step)
	}

	if len(patched) != len(derived) {
		return nil, report, ErrLengthChanged
	}

	return patched, report, nil
}

func fieldWrites(crcOffset int, fields Fields) []fieldWrite {
	return []fieldWrite{
		{FieldCRC32, crcOffset, 4, fields.CRC32},
		{FieldCompressedSize, crcOffset + compressedSizeDelta, 4, fields.CompressedSize},
		{FieldUncompressedSize, crcOffset + uncompressedSizeDelta, 4, fields.UncompressedSize},
		{FieldMethod, crcOffset + methodDelta, 2, uint32(fields.Method)},
	}
}

func put(b []byte, write fieldWrite) bool {
	if write.offset < 0 || write.offset+write.width > len(b) {
		return false
	}

	switch write.width {
	case 2:
		le.PutUint16(b[write.offset:], uint16(write.value))
	case 4:
		le.PutUint32(b[write.offset:], write.value)
	default:
		return false
	}

	return true
}
