package verify

import (
	"errors"
	"strings"
	"testing"

	"github.com/colorfulnotion/dexverify/dex"
	"github.com/colorfulnotion/dexverify/vfyerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	meth := testMethod(code(gotoOp(9)))
	err := newError(meth, 0, vfyerrors.ErrBInvalidTarget, "VFY: invalid branch target %d", 9)

	assert.Equal(t, "VFY: invalid branch target 9 at 0x0000 (goto) in Lcom/example/Foo;.bar:()V", err.Error())
	assert.Equal(t, "B4", err.Code())
	assert.True(t, errors.Is(err, vfyerrors.ErrBInvalidTarget))
	assert.Equal(t, "InvalidTarget", vfyerrors.GetErrorName(err))

	bare := newError(nil, NoOffset, vfyerrors.ErrMEmptyCode, "VFY: no code")
	assert.Equal(t, "VFY: no code", bare.Error())
	assert.False(t, bare.HasOp)
}

func TestLogVerifyFailureWithMethod(t *testing.T) {
	buf := captureLogs(t)
	meth := testMethod(code(gotoOp(9)))
	LogVerifyFailure(meth, newError(meth, 0, vfyerrors.ErrBInvalidTarget, "VFY: invalid branch target"))

	out := buf.String()
	assert.Contains(t, out, "level=\"WARN \"")
	assert.Contains(t, out, "code=B4")
	assert.Contains(t, out, "offset=0")
	assert.Contains(t, out, "opcode=goto")
	assert.Contains(t, out, "class=com.example.Foo")
	assert.Contains(t, out, "method=bar")
	assert.Contains(t, out, "rejected Lcom/example/Foo;.bar ()V")
}

func TestLogVerifyFailureWithoutMethod(t *testing.T) {
	buf := captureLogs(t)
	LogVerifyFailure(nil, errors.New("VFY: something odd"))
	out := buf.String()
	assert.Contains(t, out, "something odd")
	assert.NotContains(t, out, "rejected")

	buf.Reset()
	LogVerifyFailure(nil, nil)
	assert.Empty(t, buf.String())
}

func TestLogUnableToResolveClass(t *testing.T) {
	buf := captureLogs(t)
	meth := &dex.Method{ClassDescriptor: "Lcom/example/Foo;", Name: "bar", Proto: "()V"}

	LogUnableToResolveClass("Ljava/lang/Missing;", meth)
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "missing=java.lang.Missing")
	assert.Contains(t, out, "class=com.example.Foo")
	assert.Contains(t, out, "code=R1")

	buf.Reset()
	LogUnableToResolveClass("[Ljava/lang/Missing;", nil)
	assert.Contains(t, buf.String(), "missing=[Ljava.lang.Missing;")
}

func TestLogUnableToResolveClassOptimizing(t *testing.T) {
	buf := captureLogs(t)
	SetOptimizing(true)
	t.Cleanup(func() { SetOptimizing(false) })

	LogUnableToResolveClass("Ljava/lang/Missing;", nil)
	assert.Empty(t, buf.String())

	Config{Optimizing: false}.ApplyGlobals()
	assert.False(t, IsOptimizing())
}

// Each failure is reported exactly once by the pass that detects it.
func TestFailureReportedOnce(t *testing.T) {
	buf := captureLogs(t)
	_, err := ComputeCodeWidths(testMethod(code([]uint16{0x00fe})), NewFlagTable(1))
	require.Error(t, err)
	lines := 0
	for _, l := range strings.Split(buf.String(), "\n") {
		if l != "" {
			lines++
		}
	}
	// one attribute line plus the "rejected" context line
	assert.Equal(t, 2, lines)
}
