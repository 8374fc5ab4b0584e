package dex

import (
	"fmt"

	"github.com/colorfulnotion/dexverify/vfyerrors"
)

// Payload pseudo-instructions are "extended NOPs": a full code unit whose low
// byte is NOP and whose high byte selects the table kind.
const (
	PackedSwitchSignature uint16 = 0x0100
	SparseSwitchSignature uint16 = 0x0200
	ArrayDataSignature    uint16 = 0x0300
)

// Header sizes, in code units, of the payload tables.
const (
	packedSwitchHeader = 4 // ident, size, first_key (2 units)
	sparseSwitchHeader = 2 // ident, size
	arrayDataHeader    = 4 // ident, element_width, size (2 units)
)

// IsPayloadSignature reports whether unit starts a payload table.
func IsPayloadSignature(unit uint16) bool {
	return unit == PackedSwitchSignature || unit == SparseSwitchSignature || unit == ArrayDataSignature
}

// PackedSwitchWidth is the extent in code units of a packed-switch payload with
// the given number of entries.
func PackedSwitchWidth(size uint16) uint64 {
	return packedSwitchHeader + uint64(size)*2
}

func SparseSwitchWidth(size uint16) uint64 {
	return sparseSwitchHeader + uint64(size)*4
}

func ArrayDataWidth(elemWidth uint16, size uint32) uint64 {
	return arrayDataHeader + (uint64(elemWidth)*uint64(size)+1)/2
}

// PayloadWidth measures the payload table starting at off. isPayload is false
// when the unit at off is not a payload signature; the caller then decodes an
// ordinary opcode. Any header field or table body that lies beyond the end of
// insns yields ErrMPayloadOverrun.
func PayloadWidth(insns []uint16, off int) (width int, isPayload bool, err error) {
	if off < 0 || off >= len(insns) {
		return 0, false, fmt.Errorf("offset %d outside code of %d units: %w", off, len(insns), vfyerrors.ErrMOffsetOutOfRange)
	}
	var w uint64
	switch insns[off] {
	case PackedSwitchSignature:
		if off+1 >= len(insns) {
			return 0, true, fmt.Errorf("packed-switch header at %d truncated: %w", off, vfyerrors.ErrMPayloadOverrun)
		}
		w = PackedSwitchWidth(insns[off+1])
	case SparseSwitchSignature:
		if off+1 >= len(insns) {
			return 0, true, fmt.Errorf("sparse-switch header at %d truncated: %w", off, vfyerrors.ErrMPayloadOverrun)
		}
		w = SparseSwitchWidth(insns[off+1])
	case ArrayDataSignature:
		if off+3 >= len(insns) {
			return 0, true, fmt.Errorf("array-data header at %d truncated: %w", off, vfyerrors.ErrMPayloadOverrun)
		}
		size := uint32(insns[off+2]) | uint32(insns[off+3])<<16
		w = ArrayDataWidth(insns[off+1], size)
	default:
		return 0, false, nil
	}
	if w > uint64(len(insns)-off) {
		return 0, true, fmt.Errorf("payload at %d needs %d units, only %d remain: %w", off, w, len(insns)-off, vfyerrors.ErrMPayloadOverrun)
	}
	return int(w), true, nil
}

// ReadS4 reads a signed 32-bit value stored little-endian across two code units.
func ReadS4(insns []uint16, off int) int32 {
	return int32(uint32(insns[off]) | uint32(insns[off+1])<<16)
}
