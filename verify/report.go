package verify

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/log"
	"github.com/colorfulnotion/dexverify/vfyerrors"
)

// NoOffset is used in an Error that is not tied to a single instruction.
const NoOffset = -1

// Error is a verification failure for one method. Kind is one of the
// vfyerrors sentinels and is what errors.Is matches against.
type Error struct {
	Method  *dex.Method
	Offset  int
	Opcode  dex.Opcode
	HasOp   bool
	Message string
	Kind    error
}

func (e *Error) Error() string {
	s := e.Message
	if e.Offset != NoOffset {
		if e.HasOp {
			s = fmt.Sprintf("%s at 0x%04x (%s)", s, e.Offset, e.Opcode)
		} else {
			s = fmt.Sprintf("%s at 0x%04x", s, e.Offset)
		}
	}
	if e.Method != nil {
		s = fmt.Sprintf("%s in %s", s, e.Method)
	}
	return s
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Code returns the short error code of Kind, e.g. "B4".
func (e *Error) Code() string {
	return vfyerrors.GetErrorCode(e.Kind)
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func newError(meth *dex.Method, off int, kind error, format string, args ...interface{}) *Error {
	e := &Error{
		Method:  meth,
		Offset:  off,
		Message: fmt.Sprintf(format, args...),
		Kind:    kind,
	}
	if meth != nil && off >= 0 && off < len(meth.Insns) {
		e.Opcode = dex.DecodeOpcode(meth.Insns[off])
		e.HasOp = true
	}
	return e
}

// fail builds the error, reports it and returns it, so each failure is
// logged exactly once at the place it is detected.
func fail(meth *dex.Method, off int, kind error, format string, args ...interface{}) error {
	e := newError(meth, off, kind, format, args...)
	LogVerifyFailure(meth, e)
	return e
}

var optimizing atomic.Bool

// SetOptimizing switches the process into optimizing mode, in which
// unresolvable classes are expected and not reported.
func SetOptimizing(on bool) {
	optimizing.Store(on)
}

func IsOptimizing() bool {
	return optimizing.Load()
}

// LogVerifyFailure reports a verification failure. meth may be nil when the
// failing method is not known. It never fails and never exits.
func LogVerifyFailure(meth *dex.Method, err error) {
	if err == nil {
		return
	}
	attrs := []interface{}{"code", vfyerrors.GetErrorCode(err), "err", err.Error()}
	if ve, ok := AsError(err); ok {
		if ve.Offset != NoOffset {
			attrs = append(attrs, "offset", ve.Offset)
		}
		if ve.HasOp {
			attrs = append(attrs, "opcode", ve.Opcode.String())
		}
		if meth == nil {
			meth = ve.Method
		}
	}
	if meth == nil {
		log.Warn(log.VerifyMonitoring, "VFY: verification failed", attrs...)
		return
	}
	attrs = append(attrs, "class", dex.DescriptorToDot(meth.ClassDescriptor), "method", meth.Name, "proto", meth.Proto)
	log.Warn(log.VerifyMonitoring, "VFY: verification failed", attrs...)
	log.Warn(log.VerifyMonitoring, fmt.Sprintf("VFY:  rejected %s.%s %s", meth.ClassDescriptor, meth.Name, meth.Proto))
}

// LogUnableToResolveClass reports that missingClassDescriptor, referenced
// from meth, could not be found. Suppressed in optimizing mode.
func LogUnableToResolveClass(missingClassDescriptor string, meth *dex.Method) {
	if IsOptimizing() {
		return
	}
	missing := dex.DescriptorToDot(missingClassDescriptor)
	if meth == nil {
		log.Error(log.VerifyMonitoring, "VFY: unable to find class referenced in signature",
			"missing", missing, "code", vfyerrors.GetErrorCode(vfyerrors.ErrRUnresolvedClass))
		return
	}
	log.Error(log.VerifyMonitoring, "VFY: unable to find class referenced in signature",
		"missing", missing,
		"class", dex.DescriptorToDot(meth.ClassDescriptor),
		"method", meth.Name,
		"proto", meth.Proto,
		"code", vfyerrors.GetErrorCode(vfyerrors.ErrRUnresolvedClass))
}
