package verify

import (
	"bytes"
	"testing"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
)

// Instruction encoders used to build test methods.

func nop() []uint16        { return []uint16{0x0000} }
func returnVoid() []uint16 { return []uint16{0x000e} }

func const16(reg uint8, v int16) []uint16 {
	return []uint16{uint16(dex.CONST_16) | uint16(reg)<<8, uint16(v)}
}

func newInstance(reg uint8, typeIdx uint16) []uint16 {
	return []uint16{uint16(dex.NEW_INSTANCE) | uint16(reg)<<8, typeIdx}
}

func gotoOp(rel int8) []uint16 {
	return []uint16{uint16(dex.GOTO) | uint16(uint8(rel))<<8}
}

func goto16(rel int16) []uint16 {
	return []uint16{uint16(dex.GOTO_16), uint16(rel)}
}

func goto32(rel int32) []uint16 {
	return []uint16{uint16(dex.GOTO_32), uint16(uint32(rel)), uint16(uint32(rel) >> 16)}
}

func ifEqz(reg uint8, rel int16) []uint16 {
	return []uint16{uint16(dex.IF_EQZ) | uint16(reg)<<8, uint16(rel)}
}

func ifNe(a, b uint8, rel int16) []uint16 {
	return []uint16{uint16(dex.IF_NE) | uint16(b&0xf)<<12 | uint16(a&0xf)<<8, uint16(rel)}
}

func s4(v int32) []uint16 {
	return []uint16{uint16(uint32(v)), uint16(uint32(v) >> 16)}
}

// ref31t encodes packed-switch, sparse-switch or fill-array-data.
func ref31t(op dex.Opcode, reg uint8, rel int32) []uint16 {
	return append([]uint16{uint16(op) | uint16(reg)<<8}, s4(rel)...)
}

func packedPayload(firstKey int32, targets ...int32) []uint16 {
	out := []uint16{dex.PackedSwitchSignature, uint16(len(targets))}
	out = append(out, s4(firstKey)...)
	for _, t := range targets {
		out = append(out, s4(t)...)
	}
	return out
}

func sparsePayload(keys []int32, targets []int32) []uint16 {
	out := []uint16{dex.SparseSwitchSignature, uint16(len(keys))}
	for _, k := range keys {
		out = append(out, s4(k)...)
	}
	for _, t := range targets {
		out = append(out, s4(t)...)
	}
	return out
}

func arrayPayload(elemWidth uint16, data ...uint16) []uint16 {
	count := uint32(0)
	if elemWidth > 0 {
		count = uint32(len(data)*2) / uint32(elemWidth)
	}
	out := []uint16{dex.ArrayDataSignature, elemWidth}
	out = append(out, s4(int32(count))...)
	return append(out, data...)
}

func code(parts ...[]uint16) []uint16 {
	var out []uint16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func testMethod(insns []uint16, tries ...dex.TryBlock) *dex.Method {
	return &dex.Method{
		ClassDescriptor: "Lcom/example/Foo;",
		Name:            "bar",
		Proto:           "()V",
		Insns:           insns,
		Tries:           tries,
	}
}

// scanned runs the width scanner and fails the test on error.
func scanned(t *testing.T, meth *dex.Method) FlagTable {
	t.Helper()
	flags := NewFlagTable(len(meth.Insns))
	if _, err := ComputeCodeWidths(meth, flags); err != nil {
		t.Fatalf("ComputeCodeWidths: %v", err)
	}
	return flags
}

// captureLogs routes the root logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := log.Root()
	buf := &bytes.Buffer{}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(buf, log.LevelInfo)))
	t.Cleanup(func() { log.SetDefault(prev) })
	return buf
}
