package vfyerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorParts(t *testing.T) {
	err := fmt.Errorf("offset 7: %w", ErrSKeysNotSorted)
	assert.Equal(t, "S6", GetErrorCode(err))
	assert.Equal(t, "KeysNotSorted", GetErrorName(err))
	assert.Equal(t, "S6_KeysNotSorted", GetErrorCodeWithName(err))
	assert.Equal(t, "Sparse switch keys are not strictly ascending.", GetErrorDesc(err))
	assert.True(t, errors.Is(err, ErrSKeysNotSorted))
}

func TestErrorPartsWithoutCode(t *testing.T) {
	plain := errors.New("plain failure")
	assert.Equal(t, "", GetErrorCode(plain))
	assert.Equal(t, "plain failure", GetErrorName(plain))
	assert.Equal(t, "", GetErrorCodeWithName(plain))
	assert.Equal(t, "DESC NOT SET", GetErrorDesc(plain))

	assert.Equal(t, "No Error", GetErrorName(nil))
	assert.Equal(t, "", GetErrorCode(nil))
	assert.Equal(t, []string{"EmptyCode", "No Error"}, GetErrorNames([]error{ErrMEmptyCode, nil}))
}

func TestCategory(t *testing.T) {
	cases := map[error]string{
		ErrMUnknownOpcode:   CategoryMalformedStream,
		ErrMPayloadOverrun:  CategoryMalformedStream,
		ErrBSelfBranch:      CategoryControlTransfer,
		ErrSInvalidTarget:   CategoryControlTransfer,
		ErrATableMismatch:   CategoryControlTransfer,
		ErrTEndMisaligned:   CategoryExceptionRegion,
		ErrRUnresolvedClass: CategoryResolution,
		errors.New("x"):     CategoryUnknown,
	}
	for err, want := range cases {
		assert.Equal(t, want, Category(fmt.Errorf("wrapped: %w", err)), err.Error())
	}
}

// Codes must be unique so reports can be keyed on them.
func TestCodesUnique(t *testing.T) {
	all := []error{
		ErrMEmptyCode, ErrMFlagsSize, ErrMUnknownOpcode, ErrMPayloadOverrun, ErrMCodeEndMismatch, ErrMInsaneWidth, ErrMOffsetOutOfRange,
		ErrBNotBranch, ErrBSelfBranch, ErrBTargetOverflow, ErrBInvalidTarget,
		ErrSNotSwitch, ErrSInvalidStart, ErrSUnaligned, ErrSBadSignature, ErrSInvalidEnd, ErrSKeysNotSorted, ErrSInvalidTarget, ErrSTableMismatch, ErrSTargetOverflow,
		ErrANotFillArray, ErrAInvalidStart, ErrAUnaligned, ErrABadSignature, ErrAInvalidEnd, ErrATableMismatch,
		ErrTBadBounds, ErrTStartMisaligned, ErrTEndMisaligned, ErrTBadHandler,
		ErrRUnresolvedClass,
	}
	seen := make(map[string]bool)
	for _, err := range all {
		code := GetErrorCode(err)
		assert.NotEmpty(t, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
		assert.NotEqual(t, CategoryUnknown, Category(err))
	}
}

func TestCodeCategory(t *testing.T) {
	assert.Equal(t, CategoryExceptionRegion, CodeCategory("T3"))
	assert.Equal(t, CategoryUnknown, CodeCategory(""))
	assert.Equal(t, CategoryUnknown, CodeCategory("DEX"))
}
