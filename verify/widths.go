package verify

import (
	"errors"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/colorfulnotion/dexverify/vfyerrors"
)

// ComputeCodeWidths walks the instruction stream of meth from offset 0,
// recording the width of every instruction in flags. It returns the number
// of new-instance instructions seen. The widths must tile the code exactly.
func ComputeCodeWidths(meth *dex.Method, flags FlagTable) (int, error) {
	insns := meth.Insns
	insnsSize := len(insns)
	if insnsSize == 0 {
		return 0, fail(meth, NoOffset, vfyerrors.ErrMEmptyCode, "VFY: method has no code")
	}
	if len(flags) != insnsSize {
		return 0, fail(meth, NoOffset, vfyerrors.ErrMFlagsSize, "VFY: flag table has %d entries for %d code units", len(flags), insnsSize)
	}

	flags.Reset()

	newInstanceCount := 0
	off := 0
	for off < insnsSize {
		width, isPayload, err := dex.PayloadWidth(insns, off)
		if err != nil {
			kind := vfyerrors.ErrMPayloadOverrun
			if errors.Is(err, vfyerrors.ErrMOffsetOutOfRange) {
				kind = vfyerrors.ErrMOffsetOutOfRange
			}
			return 0, fail(meth, off, kind, "VFY: %v", err)
		}
		if !isPayload {
			op := dex.DecodeOpcode(insns[off])
			width = dex.Width(op)
			if width == 0 {
				return 0, fail(meth, off, vfyerrors.ErrMUnknownOpcode, "VFY: invalid opcode 0x%02x", uint8(op))
			}
			if dex.IsAllocation(op) {
				newInstanceCount++
			}
			if width > insnsSize-off {
				return 0, fail(meth, off, vfyerrors.ErrMCodeEndMismatch, "VFY: %s needs %d units, only %d remain", op, width, insnsSize-off)
			}
		}
		if width > MaxInsnWidth {
			return 0, fail(meth, off, vfyerrors.ErrMInsaneWidth, "VFY: insane width %d", width)
		}
		flags.SetWidth(off, width)
		off += width
	}

	if off != insnsSize {
		return 0, fail(meth, NoOffset, vfyerrors.ErrMCodeEndMismatch, "VFY: code did not end where expected (%d vs. %d)", off, insnsSize)
	}
	log.Trace(log.ScanMonitoring, "widths computed", "method", meth.String(), "units", insnsSize, "newInstances", newInstanceCount)
	return newInstanceCount, nil
}
