package vfyerrors

import (
	"errors"
	"strings"
)

// Malformed stream (M) Errors
var (
	ErrMEmptyCode        = errors.New("M1|EmptyCode: Method has no instructions.")
	ErrMFlagsSize        = errors.New("M2|FlagsSize: Instruction flag table does not match the code length.")
	ErrMUnknownOpcode    = errors.New("M3|UnknownOpcode: Instruction uses an unused or invalid opcode value.")
	ErrMPayloadOverrun   = errors.New("M4|PayloadOverrun: Variable-width payload runs past the end of the code.")
	ErrMCodeEndMismatch  = errors.New("M5|CodeEndMismatch: Instruction widths do not end exactly at the code length.")
	ErrMInsaneWidth      = errors.New("M6|InsaneWidth: Instruction width does not fit the width field.")
	ErrMOffsetOutOfRange = errors.New("M7|OffsetOutOfRange: Offset is outside the code or not an instruction start.")
)

// Branch (B) Errors
var (
	ErrBNotBranch      = errors.New("B1|NotBranch: Instruction is not a single-target branch.")
	ErrBSelfBranch     = errors.New("B2|SelfBranch: Branch offset of zero is not allowed here.")
	ErrBTargetOverflow = errors.New("B3|TargetOverflow: Branch target overflows the offset range.")
	ErrBInvalidTarget  = errors.New("B4|InvalidTarget: Branch target is out of range or not an instruction start.")
)

// Switch (S) Errors
var (
	ErrSNotSwitch      = errors.New("S1|NotSwitch: Instruction is not a packed or sparse switch.")
	ErrSInvalidStart   = errors.New("S2|InvalidStart: Switch table starts outside the code.")
	ErrSUnaligned      = errors.New("S3|Unaligned: Switch table is not 32-bit aligned.")
	ErrSBadSignature   = errors.New("S4|BadSignature: Switch table has the wrong signature.")
	ErrSInvalidEnd     = errors.New("S5|InvalidEnd: Switch table ends outside the code.")
	ErrSKeysNotSorted  = errors.New("S6|KeysNotSorted: Sparse switch keys are not strictly ascending.")
	ErrSInvalidTarget  = errors.New("S7|InvalidTarget: Switch target is out of range or not an instruction start.")
	ErrSTableMismatch  = errors.New("S8|TableMismatch: Switch table extent disagrees with the scanned instruction widths.")
	ErrSTargetOverflow = errors.New("S9|TargetOverflow: Switch target overflows the offset range.")
)

// Array data (A) Errors
var (
	ErrANotFillArray  = errors.New("A1|NotFillArray: Instruction is not fill-array-data.")
	ErrAInvalidStart  = errors.New("A2|InvalidStart: Array data table starts outside the code.")
	ErrAUnaligned     = errors.New("A3|Unaligned: Array data table is not 32-bit aligned.")
	ErrABadSignature  = errors.New("A4|BadSignature: Array data table has the wrong signature.")
	ErrAInvalidEnd    = errors.New("A5|InvalidEnd: Array data table ends outside the code.")
	ErrATableMismatch = errors.New("A6|TableMismatch: Array data extent disagrees with the scanned instruction widths.")
)

// Try region (T) Errors
var (
	ErrTBadBounds       = errors.New("T1|BadBounds: Try block bounds are empty or outside the code.")
	ErrTStartMisaligned = errors.New("T2|StartMisaligned: Try block starts inside an instruction.")
	ErrTEndMisaligned   = errors.New("T3|EndMisaligned: Try block ends inside an instruction.")
	ErrTBadHandler      = errors.New("T4|BadHandler: Exception handler starts at a bad address.")
)

// Resolution (R) Errors
var (
	ErrRUnresolvedClass = errors.New("R1|UnresolvedClass: Referenced class could not be found.")
)

// Category names used by Category.
const (
	CategoryMalformedStream = "malformed stream"
	CategoryControlTransfer = "invalid control transfer"
	CategoryExceptionRegion = "invalid exception region"
	CategoryResolution      = "resolution failure"
	CategoryUnknown         = "unknown"
)

// root returns the innermost error of a wrap chain, which is where the
// coded sentinel lives.
func root(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// GetErrorName extracts the error name from the error message.
func GetErrorName(err error) string {
	if err == nil {
		return "No Error"
	}
	errStr := root(err).Error()
	if !strings.Contains(errStr, "|") || !strings.Contains(errStr, ":") {
		return errStr
	}
	parts := strings.SplitN(errStr, "|", 2)
	nameParts := strings.SplitN(parts[1], ":", 2)
	return strings.TrimSpace(nameParts[0])
}

func GetErrorNames(errs []error) []string {
	errStrs := make([]string, len(errs))
	for i, err := range errs {
		errStrs[i] = GetErrorName(err)
	}
	return errStrs
}

// GetErrorCode extracts the error code from the error message.
func GetErrorCode(err error) string {
	if err == nil {
		return ""
	}
	errStr := root(err).Error()
	if !strings.Contains(errStr, "|") {
		return ""
	}
	parts := strings.SplitN(errStr, "|", 2)
	return strings.TrimSpace(parts[0])
}

// GetErrorCodeWithName returns the error code and name in the format "Code_ErrorName".
func GetErrorCodeWithName(err error) string {
	code := GetErrorCode(err)
	name := GetErrorName(err)
	if code == "" || name == "" {
		return ""
	}
	return code + "_" + name
}

// GetErrorDesc extracts the error description from the error message.
func GetErrorDesc(err error) string {
	if err == nil {
		return ""
	}
	parts := strings.SplitN(root(err).Error(), ":", 2)
	if len(parts) < 2 {
		return "DESC NOT SET"
	}
	return strings.TrimSpace(parts[1])
}

// Category maps an error code prefix onto the failure taxonomy.
func Category(err error) string {
	return CodeCategory(GetErrorCode(err))
}

// CodeCategory is Category for a bare code such as "S6".
func CodeCategory(code string) string {
	if code == "" {
		return CategoryUnknown
	}
	switch code[0] {
	case 'M':
		return CategoryMalformedStream
	case 'B', 'S', 'A':
		return CategoryControlTransfer
	case 'T':
		return CategoryExceptionRegion
	case 'R':
		return CategoryResolution
	default:
		return CategoryUnknown
	}
}
