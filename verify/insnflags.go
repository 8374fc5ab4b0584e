package verify

// InsnFlags holds the per-code-unit state shared between pre-analysis and the
// dataflow verifier:
//
//	0-15  instruction width (0 if this address does not start an instruction)
//	16    in try block
//	17    branch target
//	18    GC point
//	30    visited (dataflow verifier)
//	31    changed (dataflow verifier)
//
// Bits are only ever accessed through the methods below. Pre-analysis writes
// never touch visited or changed.
type InsnFlags uint32

const (
	flagWidthMask    InsnFlags = 0x0000ffff
	flagInTry        InsnFlags = 1 << 16
	flagBranchTarget InsnFlags = 1 << 17
	flagGcPoint      InsnFlags = 1 << 18
	flagVisited      InsnFlags = 1 << 30
	flagChanged      InsnFlags = 1 << 31

	// bits the width scan starts from zero; GC points belong to their marker
	preAnalysisMask = flagWidthMask | flagInTry | flagBranchTarget
)

// MaxInsnWidth is the largest width the width field can hold.
const MaxInsnWidth = int(flagWidthMask)

func (f InsnFlags) Width() int           { return int(f & flagWidthMask) }
func (f InsnFlags) IsOpcode() bool       { return f&flagWidthMask != 0 }
func (f InsnFlags) InTry() bool          { return f&flagInTry != 0 }
func (f InsnFlags) IsBranchTarget() bool { return f&flagBranchTarget != 0 }
func (f InsnFlags) IsGcPoint() bool      { return f&flagGcPoint != 0 }
func (f InsnFlags) IsVisited() bool      { return f&flagVisited != 0 }
func (f InsnFlags) IsChanged() bool      { return f&flagChanged != 0 }

func (f InsnFlags) with(bit InsnFlags, on bool) InsnFlags {
	if on {
		return f | bit
	}
	return f &^ bit
}

// FlagTable has one entry per code unit of a method.
type FlagTable []InsnFlags

// NewFlagTable allocates a zeroed table for a method of insnsSize code units.
func NewFlagTable(insnsSize int) FlagTable {
	return make(FlagTable, insnsSize)
}

// Reset clears width, in-try and branch-target bits. GC-point and dataflow
// bits are kept.
func (t FlagTable) Reset() {
	for i := range t {
		t[i] &^= preAnalysisMask
	}
}

// covers reports whether t has exactly one entry per code unit of insns.
func (t FlagTable) covers(insns []uint16) bool {
	return len(t) == len(insns)
}

func (t FlagTable) inRange(addr int) bool {
	return addr >= 0 && addr < len(t)
}

func (t FlagTable) Width(addr int) int {
	return t[addr].Width()
}

// IsOpcode reports whether an instruction starts at addr. Out-of-range
// addresses are never opcodes.
func (t FlagTable) IsOpcode(addr int) bool {
	return t.inRange(addr) && t[addr].IsOpcode()
}

func (t FlagTable) InTry(addr int) bool          { return t[addr].InTry() }
func (t FlagTable) IsBranchTarget(addr int) bool { return t[addr].IsBranchTarget() }
func (t FlagTable) IsGcPoint(addr int) bool      { return t[addr].IsGcPoint() }
func (t FlagTable) IsVisited(addr int) bool      { return t[addr].IsVisited() }
func (t FlagTable) IsChanged(addr int) bool      { return t[addr].IsChanged() }

// SetWidth records the instruction width at addr. Width must fit the 16-bit
// field; the scanner rejects anything larger before calling this.
func (t FlagTable) SetWidth(addr int, width int) {
	t[addr] = (t[addr] &^ flagWidthMask) | (InsnFlags(width) & flagWidthMask)
}

func (t FlagTable) SetInTry(addr int, on bool) {
	t[addr] = t[addr].with(flagInTry, on)
}

func (t FlagTable) SetBranchTarget(addr int, on bool) {
	t[addr] = t[addr].with(flagBranchTarget, on)
}

func (t FlagTable) SetGcPoint(addr int, on bool) {
	t[addr] = t[addr].with(flagGcPoint, on)
}

// SetVisited and SetChanged are provided for the dataflow verifier.
func (t FlagTable) SetVisited(addr int, on bool) {
	t[addr] = t[addr].with(flagVisited, on)
}

func (t FlagTable) SetChanged(addr int, on bool) {
	t[addr] = t[addr].with(flagChanged, on)
}

// NextOpcode returns the address following the instruction at addr.
func (t FlagTable) NextOpcode(addr int) int {
	return addr + t[addr].Width()
}
