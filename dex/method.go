package dex

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// NoIndex marks a catch-all handler, which has no exception type.
const NoIndex = ^uint32(0)

// CatchHandler is one entry of an exception handler list.
type CatchHandler struct {
	TypeIdx uint32 `json:"type_idx"`
	Addr    uint32 `json:"addr"`
}

func (h CatchHandler) IsCatchAll() bool {
	return h.TypeIdx == NoIndex
}

// TryBlock covers the code units [StartAddr, StartAddr+InsnCount).
type TryBlock struct {
	StartAddr uint32         `json:"start_addr"`
	InsnCount uint16         `json:"insn_count"`
	Handlers  []CatchHandler `json:"handlers"`
}

// EndAddr is the exclusive end of the protected range. It is widened so a
// range ending past 0xffffffff does not wrap.
func (t TryBlock) EndAddr() uint64 {
	return uint64(t.StartAddr) + uint64(t.InsnCount)
}

// Method is an already-loaded method body. It is never modified by the
// verifier.
type Method struct {
	ClassDescriptor string     `json:"class"`
	Name            string     `json:"name"`
	Proto           string     `json:"proto"`
	Insns           []uint16   `json:"-"`
	Tries           []TryBlock `json:"tries,omitempty"`

	// HandlerLists holds every encoded handler list of the code item, including
	// lists no try block refers to. When nil the handlers reachable from Tries
	// are used.
	HandlerLists [][]CatchHandler `json:"-"`
}

// InsnsSize returns the code length in 16-bit units.
func (m *Method) InsnsSize() int {
	return len(m.Insns)
}

// AllHandlers returns every handler list that must be checked for valid
// target addresses.
func (m *Method) AllHandlers() [][]CatchHandler {
	if m.HandlerLists != nil {
		return m.HandlerLists
	}
	lists := make([][]CatchHandler, 0, len(m.Tries))
	for _, t := range m.Tries {
		lists = append(lists, t.Handlers)
	}
	return lists
}

// TriesSorted reports whether try blocks are in ascending, non-overlapping
// order, as the dex format requires.
func (m *Method) TriesSorted() bool {
	return slices.IsSortedFunc(m.Tries, func(a, b TryBlock) int {
		return int(int64(a.StartAddr) - int64(b.StartAddr))
	}) && !m.triesOverlap()
}

func (m *Method) triesOverlap() bool {
	for i := 1; i < len(m.Tries); i++ {
		if uint64(m.Tries[i].StartAddr) < m.Tries[i-1].EndAddr() {
			return true
		}
	}
	return false
}

// String is the "Lpkg/Class;.name:(args)ret" form used in diagnostics.
func (m *Method) String() string {
	if m == nil {
		return "<unknown method>"
	}
	return fmt.Sprintf("%s.%s:%s", m.ClassDescriptor, m.Name, m.Proto)
}

// DescriptorToDot converts a type descriptor such as "Ljava/lang/String;" to
// "java.lang.String". Array and primitive descriptors are returned with only
// the slashes replaced.
func DescriptorToDot(descriptor string) string {
	s := descriptor
	if strings.HasPrefix(s, "L") && strings.HasSuffix(s, ";") {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, "/", ".")
}
