package verify

import (
	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/colorfulnotion/dexverify/vfyerrors"
)

// SetTryFlags sets the in-try flag on every code unit covered by a try
// block of meth and checks every exception handler address. Widths must
// already be in flags.
func SetTryFlags(meth *dex.Method, flags FlagTable) error {
	insnsSize := len(meth.Insns)
	if len(flags) != insnsSize {
		return fail(meth, NoOffset, vfyerrors.ErrMFlagsSize, "VFY: flag table has %d entries for %d code units", len(flags), insnsSize)
	}

	for i, try := range meth.Tries {
		start := int(try.StartAddr)
		end := int(try.EndAddr())
		if start >= end || start >= insnsSize || end > insnsSize {
			return fail(meth, NoOffset, vfyerrors.ErrTBadBounds, "VFY: bad exception entry %d: startAddr=%d endAddr=%d (size=%d)", i, start, end, insnsSize)
		}
		if !flags.IsOpcode(start) {
			return fail(meth, start, vfyerrors.ErrTStartMisaligned, "VFY: 'try' block starts inside an instruction (%d)", start)
		}
		if end != insnsSize && !flags.IsOpcode(end) {
			return fail(meth, end, vfyerrors.ErrTEndMisaligned, "VFY: 'try' block ends inside an instruction (%d)", end)
		}
		for addr := start; addr < end; addr++ {
			flags.SetInTry(addr, true)
		}
	}

	for _, handlers := range meth.AllHandlers() {
		for _, h := range handlers {
			addr := int64(h.Addr)
			if addr >= int64(insnsSize) || !flags.IsOpcode(int(addr)) {
				return fail(meth, NoOffset, vfyerrors.ErrTBadHandler, "VFY: exception handler starts at bad address (%d)", addr)
			}
		}
	}

	log.Trace(log.ScanMonitoring, "try flags set", "method", meth.String(), "tries", len(meth.Tries))
	return nil
}
