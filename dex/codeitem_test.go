package dex

import (
	"testing"

	"github.com/colorfulnotion/dexverify/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeItemBuilder struct {
	out []byte
}

func (b *codeItemBuilder) u2(v uint16) *codeItemBuilder {
	b.out = append(b.out, common.Uint16ToBytes(v)...)
	return b
}

func (b *codeItemBuilder) u4(v uint32) *codeItemBuilder {
	b.out = append(b.out, common.Uint32ToBytes(v)...)
	return b
}

func (b *codeItemBuilder) raw(p ...byte) *codeItemBuilder {
	b.out = append(b.out, p...)
	return b
}

func header(b *codeItemBuilder, tries uint16, insns []uint16) *codeItemBuilder {
	b.u2(3).u2(1).u2(0).u2(tries).u4(0x1234).u4(uint32(len(insns)))
	return b.raw(common.UnitsToBytes(insns)...)
}

func TestParseCodeItemNoTries(t *testing.T) {
	insns := []uint16{0x0013, 0x0001, 0x000e}
	data := header(&codeItemBuilder{}, 0, insns).out

	c, err := ParseCodeItem(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), c.RegistersSize)
	assert.Equal(t, uint16(1), c.InsSize)
	assert.Equal(t, uint32(0x1234), c.DebugInfoOff)
	assert.Equal(t, insns, c.Insns)
	assert.Empty(t, c.Tries)
	assert.Equal(t, 16+6, c.Size)

	m := c.Method("Lcom/example/Foo;", "bar", "()V")
	assert.Equal(t, "Lcom/example/Foo;.bar:()V", m.String())
	assert.Equal(t, 3, m.InsnsSize())
}

func TestParseCodeItemWithTries(t *testing.T) {
	// odd insns count forces two bytes of padding before the tries
	insns := []uint16{0x0013, 0x0001, 0x0013, 0x0002, 0x000e}
	b := header(&codeItemBuilder{}, 2, insns).u2(0)
	b.u4(0).u2(2).u2(1) // try 0 -> list at offset 1
	b.u4(2).u2(2).u2(4) // try 1 -> list at offset 4
	b.raw(
		0x02,             // two handler lists
		0x01, 0x07, 0x04, // offset 1: one typed handler, type 7 -> 4
		0x00, 0x04, // offset 4: no typed handlers, catch-all -> 4
	)

	c, err := ParseCodeItem(b.out)
	require.NoError(t, err)
	require.Len(t, c.Tries, 2)
	assert.Equal(t, uint32(2), c.Tries[1].StartAddr)
	assert.Equal(t, uint64(4), c.Tries[1].EndAddr())
	assert.Equal(t, []CatchHandler{{TypeIdx: 7, Addr: 4}}, c.Tries[0].Handlers)
	require.Len(t, c.Tries[1].Handlers, 1)
	assert.True(t, c.Tries[1].Handlers[0].IsCatchAll())
	assert.Len(t, c.HandlerLists, 2)
	assert.Equal(t, len(b.out), c.Size)

	m := c.Method("LFoo;", "f", "()V")
	assert.True(t, m.TriesSorted())
	assert.Len(t, m.AllHandlers(), 2)
}

func TestParseCodeItemUnreferencedHandlerList(t *testing.T) {
	insns := []uint16{0x0000, 0x000e}
	b := header(&codeItemBuilder{}, 1, insns)
	b.u4(0).u2(1).u2(1)
	b.raw(
		0x02,
		0x00, 0x01, // offset 1: catch-all -> 1
		0x01, 0x03, 0x09, // offset 3: type 3 -> 9, never referenced
	)
	c, err := ParseCodeItem(b.out)
	require.NoError(t, err)
	require.Len(t, c.HandlerLists, 2)
	assert.Equal(t, uint32(9), c.HandlerLists[1][0].Addr)
	assert.Len(t, c.Method("LFoo;", "f", "()V").AllHandlers(), 2)
}

func TestParseCodeItemErrors(t *testing.T) {
	insns := []uint16{0x0000, 0x000e}
	valid := func() *codeItemBuilder {
		return header(&codeItemBuilder{}, 1, insns).u4(0).u2(1).u2(1)
	}

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{1, 0, 1}, ErrTruncated},
		{"short insns", header(&codeItemBuilder{}, 0, insns).out[:18], ErrTruncated},
		{"short try", header(&codeItemBuilder{}, 1, insns).u4(0).out, ErrTruncated},
		{"missing handlers", valid().out, ErrTruncated},
		{"handler_off mismatch", header(&codeItemBuilder{}, 1, insns).u4(0).u2(1).u2(2).raw(0x01, 0x00, 0x01).out, ErrBadHandlerOff},
		{"overlong uleb", valid().raw(0xff, 0xff, 0xff, 0xff, 0xff, 0x01).out, ErrBadLeb128},
		{"unsorted tries", header(&codeItemBuilder{}, 2, insns).u4(1).u2(1).u2(1).u4(0).u2(1).u2(1).raw(0x01, 0x00, 0x01).out, ErrTriesOrder},
		{"overlapping tries", header(&codeItemBuilder{}, 2, insns).u4(0).u2(2).u2(1).u4(1).u2(1).u2(1).raw(0x01, 0x00, 0x01).out, ErrTriesOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCodeItem(tc.data)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSleb128(t *testing.T) {
	cases := map[int32][]byte{
		0:    {0x00},
		1:    {0x01},
		-1:   {0x7f},
		-128: {0x80, 0x7f},
		63:   {0x3f},
		-64:  {0x40},
		64:   {0xc0, 0x00},
	}
	for want, enc := range cases {
		r := &codeReader{data: enc}
		got, err := r.sleb128()
		require.NoError(t, err)
		assert.Equal(t, want, got, "% x", enc)
		assert.Equal(t, len(enc), r.pos)
	}
}

func TestDescriptorToDot(t *testing.T) {
	assert.Equal(t, "java.lang.String", DescriptorToDot("Ljava/lang/String;"))
	assert.Equal(t, "[Ljava.lang.String;", DescriptorToDot("[Ljava/lang/String;"))
	assert.Equal(t, "I", DescriptorToDot("I"))
}

func TestMethodString(t *testing.T) {
	var m *Method
	assert.Equal(t, "<unknown method>", m.String())
}

func TestTriesOverlapNearMaxAddress(t *testing.T) {
	first := TryBlock{StartAddr: 0xfffffffe, InsnCount: 4}
	assert.Equal(t, uint64(0x100000002), first.EndAddr())

	m := &Method{Tries: []TryBlock{first, {StartAddr: 0xffffffff, InsnCount: 1}}}
	assert.False(t, m.TriesSorted())

	m.Tries = []TryBlock{{StartAddr: 0xfffffff0, InsnCount: 0x0f}, {StartAddr: 0xffffffff, InsnCount: 1}}
	assert.True(t, m.TriesSorted())
}
