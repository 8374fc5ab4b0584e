package verify

import (
	"math"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/vfyerrors"
)

// branchOffset decodes the relative offset of the goto or if-* instruction
// at curOffset. ok is false for any other opcode or a truncated instruction.
func branchOffset(insns []uint16, curOffset int) (rel int32, conditional bool, ok bool) {
	if curOffset < 0 || curOffset >= len(insns) {
		return 0, false, false
	}
	op := dex.DecodeOpcode(insns[curOffset])
	if !dex.IsBranch(op) || curOffset+dex.Width(op) > len(insns) {
		return 0, false, false
	}
	switch op {
	case dex.GOTO:
		return int32(int8(insns[curOffset] >> 8)), false, true
	case dex.GOTO_16:
		return int32(int16(insns[curOffset+1])), false, true
	case dex.GOTO_32:
		return dex.ReadS4(insns, curOffset+1), false, true
	default:
		// if-test and if-testz both keep the offset in the second unit
		return int32(int16(insns[curOffset+1])), true, true
	}
}

// CheckBranchTarget validates the target of the goto or if-* instruction at
// curOffset and marks it as a branch target. A relative offset of zero is
// rejected unless selfOkay is set.
func CheckBranchTarget(meth *dex.Method, flags FlagTable, curOffset int, selfOkay bool) error {
	insnsSize := len(meth.Insns)
	if !flags.covers(meth.Insns) {
		return fail(meth, NoOffset, vfyerrors.ErrMFlagsSize, "VFY: flag table has %d entries for %d code units", len(flags), len(meth.Insns))
	}
	if !flags.IsOpcode(curOffset) {
		return fail(meth, NoOffset, vfyerrors.ErrMOffsetOutOfRange, "VFY: branch check at non-instruction offset %d", curOffset)
	}
	rel, _, ok := branchOffset(meth.Insns, curOffset)
	if !ok {
		return fail(meth, curOffset, vfyerrors.ErrBNotBranch, "VFY: not a branch instruction")
	}
	if rel == 0 && !selfOkay {
		return fail(meth, curOffset, vfyerrors.ErrBSelfBranch, "VFY: branch offset of zero not allowed")
	}

	abs := int64(curOffset) + int64(rel)
	if abs < math.MinInt32 || abs > math.MaxInt32 {
		return fail(meth, curOffset, vfyerrors.ErrBTargetOverflow, "VFY: branch target overflow 0x%x +%d", curOffset, rel)
	}
	if abs < 0 || abs >= int64(insnsSize) || !flags.IsOpcode(int(abs)) {
		return fail(meth, curOffset, vfyerrors.ErrBInvalidTarget, "VFY: invalid branch target %d (-> 0x%x)", rel, abs)
	}
	flags.SetBranchTarget(int(abs), true)
	return nil
}

// GetBranchTarget re-decodes the goto or if-* instruction at curOffset and
// returns its absolute target and whether it is conditional. It does not
// validate the target and never writes to flags; call CheckBranchTarget
// first.
func GetBranchTarget(meth *dex.Method, flags FlagTable, curOffset int) (int, bool, error) {
	if !flags.covers(meth.Insns) {
		return 0, false, newError(meth, NoOffset, vfyerrors.ErrMFlagsSize, "VFY: flag table has %d entries for %d code units", len(flags), len(meth.Insns))
	}
	if !flags.IsOpcode(curOffset) {
		return 0, false, newError(meth, NoOffset, vfyerrors.ErrMOffsetOutOfRange, "VFY: branch query at non-instruction offset %d", curOffset)
	}
	rel, conditional, ok := branchOffset(meth.Insns, curOffset)
	if !ok {
		return 0, false, newError(meth, curOffset, vfyerrors.ErrBNotBranch, "VFY: not a branch instruction")
	}
	return curOffset + int(rel), conditional, nil
}
