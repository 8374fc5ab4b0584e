package dex

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrTruncated     = errors.New("code item truncated")
	ErrBadLeb128     = errors.New("malformed leb128 value")
	ErrBadHandlerOff = errors.New("try handler_off does not point at a handler")
	ErrTriesOrder    = errors.New("try blocks are not sorted or overlap")
)

// CodeItem is a decoded dex code_item.
type CodeItem struct {
	RegistersSize uint16
	InsSize       uint16
	OutsSize      uint16
	DebugInfoOff  uint32
	Insns         []uint16
	Tries         []TryBlock
	HandlerLists  [][]CatchHandler

	// Size is the number of bytes of data the code item occupied.
	Size int
}

// Method wraps the code item into a Method owned by the given class.
func (c *CodeItem) Method(classDescriptor, name, proto string) *Method {
	return &Method{
		ClassDescriptor: classDescriptor,
		Name:            name,
		Proto:           proto,
		Insns:           c.Insns,
		Tries:           c.Tries,
		HandlerLists:    c.HandlerLists,
	}
}

type codeReader struct {
	data []byte
	pos  int
}

func (r *codeReader) need(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return fmt.Errorf("need %d bytes at %d, have %d: %w", n, r.pos, len(r.data)-r.pos, ErrTruncated)
	}
	return nil
}

func (r *codeReader) u2() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *codeReader) u4() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// uleb128 reads at most five bytes, the dex limit for 32-bit values.
func (r *codeReader) uleb128() (uint32, error) {
	var result uint32
	for i := 0; i < 5; i++ {
		if err := r.need(1); err != nil {
			return 0, err
		}
		b := r.data[r.pos]
		r.pos++
		result |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, fmt.Errorf("at %d: %w", r.pos, ErrBadLeb128)
}

func (r *codeReader) sleb128() (int32, error) {
	var result int32
	for i := 0; i < 5; i++ {
		if err := r.need(1); err != nil {
			return 0, err
		}
		b := r.data[r.pos]
		r.pos++
		result |= int32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			shift := 7 * (i + 1)
			if shift < 32 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, nil
		}
	}
	return 0, fmt.Errorf("at %d: %w", r.pos, ErrBadLeb128)
}

// ParseCodeItem decodes a dex code_item starting at data[0].
func ParseCodeItem(data []byte) (*CodeItem, error) {
	r := &codeReader{data: data}
	c := &CodeItem{}
	var err error
	if c.RegistersSize, err = r.u2(); err != nil {
		return nil, err
	}
	if c.InsSize, err = r.u2(); err != nil {
		return nil, err
	}
	if c.OutsSize, err = r.u2(); err != nil {
		return nil, err
	}
	triesSize, err := r.u2()
	if err != nil {
		return nil, err
	}
	if c.DebugInfoOff, err = r.u4(); err != nil {
		return nil, err
	}
	insnsSize, err := r.u4()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(insnsSize) * 2); err != nil {
		return nil, fmt.Errorf("insns: %w", err)
	}
	c.Insns = make([]uint16, insnsSize)
	for i := range c.Insns {
		c.Insns[i] = binary.LittleEndian.Uint16(r.data[r.pos:])
		r.pos += 2
	}

	if triesSize == 0 {
		c.Size = r.pos
		return c, nil
	}
	if insnsSize%2 != 0 {
		if _, err := r.u2(); err != nil {
			return nil, fmt.Errorf("padding: %w", err)
		}
	}

	handlerOffs := make([]uint16, triesSize)
	c.Tries = make([]TryBlock, triesSize)
	for i := range c.Tries {
		if c.Tries[i].StartAddr, err = r.u4(); err != nil {
			return nil, fmt.Errorf("try %d: %w", i, err)
		}
		if c.Tries[i].InsnCount, err = r.u2(); err != nil {
			return nil, fmt.Errorf("try %d: %w", i, err)
		}
		if handlerOffs[i], err = r.u2(); err != nil {
			return nil, fmt.Errorf("try %d: %w", i, err)
		}
	}

	listStart := r.pos
	listCount, err := r.uleb128()
	if err != nil {
		return nil, fmt.Errorf("handler list size: %w", err)
	}
	byOffset := make(map[int]int)
	for i := uint32(0); i < listCount; i++ {
		byOffset[r.pos-listStart] = len(c.HandlerLists)
		handlers, err := r.catchHandler()
		if err != nil {
			return nil, fmt.Errorf("handler %d: %w", i, err)
		}
		c.HandlerLists = append(c.HandlerLists, handlers)
	}
	for i, off := range handlerOffs {
		idx, ok := byOffset[int(off)]
		if !ok {
			return nil, fmt.Errorf("try %d handler_off %d: %w", i, off, ErrBadHandlerOff)
		}
		c.Tries[i].Handlers = c.HandlerLists[idx]
	}
	m := Method{Tries: c.Tries}
	if !m.TriesSorted() {
		return nil, ErrTriesOrder
	}
	c.Size = r.pos
	return c, nil
}

func (r *codeReader) catchHandler() ([]CatchHandler, error) {
	size, err := r.sleb128()
	if err != nil {
		return nil, err
	}
	count := size
	if count < 0 {
		count = -count
	}
	if count < 0 || count > 65536 {
		return nil, fmt.Errorf("handler count %d: %w", size, ErrBadLeb128)
	}
	handlers := make([]CatchHandler, 0, count+1)
	for j := int32(0); j < count; j++ {
		var h CatchHandler
		if h.TypeIdx, err = r.uleb128(); err != nil {
			return nil, err
		}
		if h.Addr, err = r.uleb128(); err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}
	if size <= 0 {
		addr, err := r.uleb128()
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, CatchHandler{TypeIdx: NoIndex, Addr: addr})
	}
	return handlers, nil
}
