package verify

import (
	"math"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/vfyerrors"
)

// payloadRef resolves the table referenced by the 31t instruction at
// curOffset. The signed 32-bit offset lives in units 1 and 2.
func payloadRef(insns []uint16, curOffset int) (int64, bool) {
	if curOffset+3 > len(insns) {
		return 0, false
	}
	return int64(curOffset) + int64(dex.ReadS4(insns, curOffset+1)), true
}

// CheckSwitchTargets validates the packed-switch or sparse-switch at
// curOffset together with its payload table, then marks every case target
// as a branch target. Either every target is marked or none is.
func CheckSwitchTargets(meth *dex.Method, flags FlagTable, curOffset int) error {
	insns := meth.Insns
	insnsSize := len(insns)
	if !flags.covers(insns) {
		return fail(meth, NoOffset, vfyerrors.ErrMFlagsSize, "VFY: flag table has %d entries for %d code units", len(flags), len(insns))
	}
	if !flags.IsOpcode(curOffset) {
		return fail(meth, NoOffset, vfyerrors.ErrMOffsetOutOfRange, "VFY: switch check at non-instruction offset %d", curOffset)
	}
	op := dex.DecodeOpcode(insns[curOffset])
	if !dex.IsSwitch(op) {
		return fail(meth, curOffset, vfyerrors.ErrSNotSwitch, "VFY: not a switch instruction")
	}
	tableStart, ok := payloadRef(insns, curOffset)
	if !ok {
		return fail(meth, curOffset, vfyerrors.ErrMCodeEndMismatch, "VFY: truncated switch instruction")
	}

	var expectedSignature uint16
	headerUnits := 2
	if op == dex.PACKED_SWITCH {
		expectedSignature = dex.PackedSwitchSignature
		headerUnits = 4
	} else {
		expectedSignature = dex.SparseSwitchSignature
	}

	if tableStart < 0 || tableStart+int64(headerUnits) > int64(insnsSize) {
		return fail(meth, curOffset, vfyerrors.ErrSInvalidStart, "VFY: invalid switch start: at %d, switch offset %d, count %d", curOffset, tableStart-int64(curOffset), insnsSize)
	}
	start := int(tableStart)
	if start&1 != 0 {
		return fail(meth, curOffset, vfyerrors.ErrSUnaligned, "VFY: unaligned switch table: at %d, switch offset %d", curOffset, start-curOffset)
	}
	if insns[start] != expectedSignature {
		return fail(meth, curOffset, vfyerrors.ErrSBadSignature, "VFY: wrong signature for switch table (0x%04x, wanted 0x%04x)", insns[start], expectedSignature)
	}

	size := insns[start+1]
	var extent uint64
	var keysStart, targetsStart int
	if op == dex.PACKED_SWITCH {
		extent = dex.PackedSwitchWidth(size)
		targetsStart = start + 4
	} else {
		extent = dex.SparseSwitchWidth(size)
		keysStart = start + 2
		targetsStart = keysStart + int(size)*2
	}
	if uint64(start)+extent > uint64(insnsSize) {
		return fail(meth, curOffset, vfyerrors.ErrSInvalidEnd, "VFY: invalid switch end: at %d, switch offset %d, end %d, count %d", curOffset, start-curOffset, uint64(start)+extent, insnsSize)
	}
	if !flags.IsOpcode(start) || uint64(flags.Width(start)) != extent {
		return fail(meth, curOffset, vfyerrors.ErrSTableMismatch, "VFY: switch table at %d spans %d units, scanner recorded %d", start, extent, flags.Width(start))
	}

	if op == dex.SPARSE_SWITCH && size > 1 {
		lastKey := dex.ReadS4(insns, keysStart)
		for i := 1; i < int(size); i++ {
			key := dex.ReadS4(insns, keysStart+i*2)
			if key <= lastKey {
				return fail(meth, curOffset, vfyerrors.ErrSKeysNotSorted, "VFY: invalid sparse switch: last key=%d, this=%d", lastKey, key)
			}
			lastKey = key
		}
	}

	targets := make([]int, 0, size)
	for i := 0; i < int(size); i++ {
		rel := dex.ReadS4(insns, targetsStart+i*2)
		abs := int64(curOffset) + int64(rel)
		if abs < math.MinInt32 || abs > math.MaxInt32 {
			return fail(meth, curOffset, vfyerrors.ErrSTargetOverflow, "VFY: switch target overflow 0x%x +%d", curOffset, rel)
		}
		if abs < 0 || abs >= int64(insnsSize) || !flags.IsOpcode(int(abs)) {
			return fail(meth, curOffset, vfyerrors.ErrSInvalidTarget, "VFY: invalid switch target %d (-> 0x%x) at 0x%x[%d]", rel, abs, curOffset, i)
		}
		targets = append(targets, int(abs))
	}
	for _, t := range targets {
		flags.SetBranchTarget(t, true)
	}
	return nil
}

// CheckArrayData validates the table referenced by the fill-array-data
// instruction at curOffset.
func CheckArrayData(meth *dex.Method, flags FlagTable, curOffset int) error {
	insns := meth.Insns
	insnsSize := len(insns)
	if !flags.covers(insns) {
		return fail(meth, NoOffset, vfyerrors.ErrMFlagsSize, "VFY: flag table has %d entries for %d code units", len(flags), len(insns))
	}
	if !flags.IsOpcode(curOffset) {
		return fail(meth, NoOffset, vfyerrors.ErrMOffsetOutOfRange, "VFY: array data check at non-instruction offset %d", curOffset)
	}
	if dex.DecodeOpcode(insns[curOffset]) != dex.FILL_ARRAY_DATA {
		return fail(meth, curOffset, vfyerrors.ErrANotFillArray, "VFY: not a fill-array-data instruction")
	}
	tableStart, ok := payloadRef(insns, curOffset)
	if !ok {
		return fail(meth, curOffset, vfyerrors.ErrMCodeEndMismatch, "VFY: truncated fill-array-data instruction")
	}
	if tableStart < 0 || tableStart+4 > int64(insnsSize) {
		return fail(meth, curOffset, vfyerrors.ErrAInvalidStart, "VFY: invalid array data start: at %d, data offset %d, count %d", curOffset, tableStart-int64(curOffset), insnsSize)
	}
	start := int(tableStart)
	if start&1 != 0 {
		return fail(meth, curOffset, vfyerrors.ErrAUnaligned, "VFY: unaligned array data table: at %d, data offset %d", curOffset, start-curOffset)
	}
	if insns[start] != dex.ArrayDataSignature {
		return fail(meth, curOffset, vfyerrors.ErrABadSignature, "VFY: wrong signature for array data (0x%04x)", insns[start])
	}
	count := uint32(insns[start+2]) | uint32(insns[start+3])<<16
	extent := dex.ArrayDataWidth(insns[start+1], count)
	if uint64(start)+extent > uint64(insnsSize) {
		return fail(meth, curOffset, vfyerrors.ErrAInvalidEnd, "VFY: invalid array data end: at %d, data offset %d, end %d, count %d", curOffset, start-curOffset, uint64(start)+extent, insnsSize)
	}
	if !flags.IsOpcode(start) || uint64(flags.Width(start)) != extent {
		return fail(meth, curOffset, vfyerrors.ErrATableMismatch, "VFY: array data at %d spans %d units, scanner recorded %d", start, extent, flags.Width(start))
	}
	return nil
}
