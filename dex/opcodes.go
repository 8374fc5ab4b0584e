package dex

// Dalvik Instructions - Unified Definition
// Opcode values occupy the low byte of the first code unit of every instruction.
// All other packages should use these constants and the table below instead of
// decoding widths on their own.

type Opcode uint8

// Moves, returns and constants.
const (
	NOP                  Opcode = 0x00
	MOVE                 Opcode = 0x01
	MOVE_FROM16          Opcode = 0x02
	MOVE_16              Opcode = 0x03
	MOVE_WIDE            Opcode = 0x04
	MOVE_WIDE_FROM16     Opcode = 0x05
	MOVE_WIDE_16         Opcode = 0x06
	MOVE_OBJECT          Opcode = 0x07
	MOVE_OBJECT_FROM16   Opcode = 0x08
	MOVE_OBJECT_16       Opcode = 0x09
	MOVE_RESULT          Opcode = 0x0a
	MOVE_RESULT_WIDE     Opcode = 0x0b
	MOVE_RESULT_OBJECT   Opcode = 0x0c
	MOVE_EXCEPTION       Opcode = 0x0d
	RETURN_VOID          Opcode = 0x0e
	RETURN               Opcode = 0x0f
	RETURN_WIDE          Opcode = 0x10
	RETURN_OBJECT        Opcode = 0x11
	CONST_4              Opcode = 0x12
	CONST_16             Opcode = 0x13
	CONST                Opcode = 0x14
	CONST_HIGH16         Opcode = 0x15
	CONST_WIDE_16        Opcode = 0x16
	CONST_WIDE_32        Opcode = 0x17
	CONST_WIDE           Opcode = 0x18
	CONST_WIDE_HIGH16    Opcode = 0x19
	CONST_STRING         Opcode = 0x1a
	CONST_STRING_JUMBO   Opcode = 0x1b
	CONST_CLASS          Opcode = 0x1c
	MONITOR_ENTER        Opcode = 0x1d
	MONITOR_EXIT         Opcode = 0x1e
	CHECK_CAST           Opcode = 0x1f
	INSTANCE_OF          Opcode = 0x20
	ARRAY_LENGTH         Opcode = 0x21
	NEW_INSTANCE         Opcode = 0x22
	NEW_ARRAY            Opcode = 0x23
	FILLED_NEW_ARRAY     Opcode = 0x24
	FILLED_NEW_ARRAY_RNG Opcode = 0x25
	FILL_ARRAY_DATA      Opcode = 0x26
	THROW                Opcode = 0x27
)

// Control transfer.
const (
	GOTO          Opcode = 0x28
	GOTO_16       Opcode = 0x29
	GOTO_32       Opcode = 0x2a
	PACKED_SWITCH Opcode = 0x2b
	SPARSE_SWITCH Opcode = 0x2c

	CMPL_FLOAT  Opcode = 0x2d
	CMPG_FLOAT  Opcode = 0x2e
	CMPL_DOUBLE Opcode = 0x2f
	CMPG_DOUBLE Opcode = 0x30
	CMP_LONG    Opcode = 0x31

	IF_EQ  Opcode = 0x32
	IF_NE  Opcode = 0x33
	IF_LT  Opcode = 0x34
	IF_GE  Opcode = 0x35
	IF_GT  Opcode = 0x36
	IF_LE  Opcode = 0x37
	IF_EQZ Opcode = 0x38
	IF_NEZ Opcode = 0x39
	IF_LTZ Opcode = 0x3a
	IF_GEZ Opcode = 0x3b
	IF_GTZ Opcode = 0x3c
	IF_LEZ Opcode = 0x3d
)

// Field and array access, invokes.
const (
	AGET                   Opcode = 0x44
	APUT_SHORT             Opcode = 0x51
	IGET                   Opcode = 0x52
	IPUT_SHORT             Opcode = 0x5f
	SGET                   Opcode = 0x60
	SPUT_SHORT             Opcode = 0x6d
	INVOKE_VIRTUAL         Opcode = 0x6e
	INVOKE_SUPER           Opcode = 0x6f
	INVOKE_DIRECT          Opcode = 0x70
	INVOKE_STATIC          Opcode = 0x71
	INVOKE_INTERFACE       Opcode = 0x72
	INVOKE_VIRTUAL_RANGE   Opcode = 0x74
	INVOKE_SUPER_RANGE     Opcode = 0x75
	INVOKE_DIRECT_RANGE    Opcode = 0x76
	INVOKE_STATIC_RANGE    Opcode = 0x77
	INVOKE_INTERFACE_RANGE Opcode = 0x78
)

// Arithmetic.
const (
	NEG_INT          Opcode = 0x7b
	INT_TO_SHORT     Opcode = 0x8f
	ADD_INT          Opcode = 0x90
	REM_DOUBLE       Opcode = 0xaf
	ADD_INT_2ADDR    Opcode = 0xb0
	REM_DOUBLE_2ADDR Opcode = 0xcf
	ADD_INT_LIT16    Opcode = 0xd0
	XOR_INT_LIT16    Opcode = 0xd7
	ADD_INT_LIT8     Opcode = 0xd8
	USHR_INT_LIT8    Opcode = 0xe2
)

// Format is the Dalvik instruction format identifier, e.g. "22t" is
// two code units, two registers and a branch offset.
type Format uint8

const (
	FmtUnused Format = iota
	Fmt10x
	Fmt12x
	Fmt11n
	Fmt11x
	Fmt10t
	Fmt20t
	Fmt22x
	Fmt21t
	Fmt21s
	Fmt21h
	Fmt21c
	Fmt23x
	Fmt22b
	Fmt22t
	Fmt22s
	Fmt22c
	Fmt32x
	Fmt30t
	Fmt31t
	Fmt31i
	Fmt31c
	Fmt35c
	Fmt3rc
	Fmt51l
)

var formatNames = [...]string{
	FmtUnused: "--",
	Fmt10x:    "10x", Fmt12x: "12x", Fmt11n: "11n", Fmt11x: "11x", Fmt10t: "10t",
	Fmt20t: "20t", Fmt22x: "22x", Fmt21t: "21t", Fmt21s: "21s", Fmt21h: "21h",
	Fmt21c: "21c", Fmt23x: "23x", Fmt22b: "22b", Fmt22t: "22t", Fmt22s: "22s",
	Fmt22c: "22c", Fmt32x: "32x", Fmt30t: "30t", Fmt31t: "31t", Fmt31i: "31i",
	Fmt31c: "31c", Fmt35c: "35c", Fmt3rc: "3rc", Fmt51l: "51l",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "??"
}

// Width is the number of code units of an instruction in this format; the
// first digit of the format name.
func (f Format) Width() int {
	switch f {
	case Fmt10x, Fmt12x, Fmt11n, Fmt11x, Fmt10t:
		return 1
	case Fmt20t, Fmt22x, Fmt21t, Fmt21s, Fmt21h, Fmt21c, Fmt23x, Fmt22b, Fmt22t, Fmt22s, Fmt22c:
		return 2
	case Fmt32x, Fmt30t, Fmt31t, Fmt31i, Fmt31c, Fmt35c, Fmt3rc:
		return 3
	case Fmt51l:
		return 5
	default:
		return 0
	}
}

// OpFlags describes how an instruction affects control flow.
type OpFlags uint8

const (
	CanBranch OpFlags = 1 << iota
	CanContinue
	CanSwitch
	CanThrow
	CanReturn
	Invoke
)

type opcodeInfo struct {
	name   string
	format Format
	flags  OpFlags
}

var opcodeTable [256]opcodeInfo

func def(op Opcode, name string, format Format, flags OpFlags) {
	opcodeTable[op] = opcodeInfo{name: name, format: format, flags: flags}
}

// defRange assigns consecutive opcodes starting at first.
func defRange(first Opcode, names []string, format Format, flags OpFlags) {
	for i, name := range names {
		def(first+Opcode(i), name, format, flags)
	}
}

const (
	cont      = CanContinue
	contThrow = CanContinue | CanThrow
)

func init() {
	def(NOP, "nop", Fmt10x, cont)
	def(MOVE, "move", Fmt12x, cont)
	def(MOVE_FROM16, "move/from16", Fmt22x, cont)
	def(MOVE_16, "move/16", Fmt32x, cont)
	def(MOVE_WIDE, "move-wide", Fmt12x, cont)
	def(MOVE_WIDE_FROM16, "move-wide/from16", Fmt22x, cont)
	def(MOVE_WIDE_16, "move-wide/16", Fmt32x, cont)
	def(MOVE_OBJECT, "move-object", Fmt12x, cont)
	def(MOVE_OBJECT_FROM16, "move-object/from16", Fmt22x, cont)
	def(MOVE_OBJECT_16, "move-object/16", Fmt32x, cont)
	def(MOVE_RESULT, "move-result", Fmt11x, cont)
	def(MOVE_RESULT_WIDE, "move-result-wide", Fmt11x, cont)
	def(MOVE_RESULT_OBJECT, "move-result-object", Fmt11x, cont)
	def(MOVE_EXCEPTION, "move-exception", Fmt11x, cont)
	def(RETURN_VOID, "return-void", Fmt10x, CanReturn)
	def(RETURN, "return", Fmt11x, CanReturn)
	def(RETURN_WIDE, "return-wide", Fmt11x, CanReturn)
	def(RETURN_OBJECT, "return-object", Fmt11x, CanReturn)
	def(CONST_4, "const/4", Fmt11n, cont)
	def(CONST_16, "const/16", Fmt21s, cont)
	def(CONST, "const", Fmt31i, cont)
	def(CONST_HIGH16, "const/high16", Fmt21h, cont)
	def(CONST_WIDE_16, "const-wide/16", Fmt21s, cont)
	def(CONST_WIDE_32, "const-wide/32", Fmt31i, cont)
	def(CONST_WIDE, "const-wide", Fmt51l, cont)
	def(CONST_WIDE_HIGH16, "const-wide/high16", Fmt21h, cont)
	def(CONST_STRING, "const-string", Fmt21c, contThrow)
	def(CONST_STRING_JUMBO, "const-string/jumbo", Fmt31c, contThrow)
	def(CONST_CLASS, "const-class", Fmt21c, contThrow)
	def(MONITOR_ENTER, "monitor-enter", Fmt11x, contThrow)
	def(MONITOR_EXIT, "monitor-exit", Fmt11x, contThrow)
	def(CHECK_CAST, "check-cast", Fmt21c, contThrow)
	def(INSTANCE_OF, "instance-of", Fmt22c, contThrow)
	def(ARRAY_LENGTH, "array-length", Fmt12x, contThrow)
	def(NEW_INSTANCE, "new-instance", Fmt21c, contThrow)
	def(NEW_ARRAY, "new-array", Fmt22c, contThrow)
	def(FILLED_NEW_ARRAY, "filled-new-array", Fmt35c, contThrow)
	def(FILLED_NEW_ARRAY_RNG, "filled-new-array/range", Fmt3rc, contThrow)
	def(FILL_ARRAY_DATA, "fill-array-data", Fmt31t, contThrow)
	def(THROW, "throw", Fmt11x, CanThrow)

	def(GOTO, "goto", Fmt10t, CanBranch)
	def(GOTO_16, "goto/16", Fmt20t, CanBranch)
	def(GOTO_32, "goto/32", Fmt30t, CanBranch)
	def(PACKED_SWITCH, "packed-switch", Fmt31t, CanSwitch|CanContinue)
	def(SPARSE_SWITCH, "sparse-switch", Fmt31t, CanSwitch|CanContinue)

	defRange(CMPL_FLOAT, []string{"cmpl-float", "cmpg-float", "cmpl-double", "cmpg-double", "cmp-long"}, Fmt23x, cont)
	defRange(IF_EQ, []string{"if-eq", "if-ne", "if-lt", "if-ge", "if-gt", "if-le"}, Fmt22t, CanBranch|CanContinue)
	defRange(IF_EQZ, []string{"if-eqz", "if-nez", "if-ltz", "if-gez", "if-gtz", "if-lez"}, Fmt21t, CanBranch|CanContinue)

	kinds := []string{"", "-wide", "-object", "-boolean", "-byte", "-char", "-short"}
	for i, k := range kinds {
		def(AGET+Opcode(i), "aget"+k, Fmt23x, contThrow)
		def(AGET+Opcode(len(kinds)+i), "aput"+k, Fmt23x, contThrow)
		def(IGET+Opcode(i), "iget"+k, Fmt22c, contThrow)
		def(IGET+Opcode(len(kinds)+i), "iput"+k, Fmt22c, contThrow)
		def(SGET+Opcode(i), "sget"+k, Fmt21c, contThrow)
		def(SGET+Opcode(len(kinds)+i), "sput"+k, Fmt21c, contThrow)
	}

	invokes := []string{"invoke-virtual", "invoke-super", "invoke-direct", "invoke-static", "invoke-interface"}
	for i, name := range invokes {
		def(INVOKE_VIRTUAL+Opcode(i), name, Fmt35c, contThrow|Invoke)
		def(INVOKE_VIRTUAL_RANGE+Opcode(i), name+"/range", Fmt3rc, contThrow|Invoke)
	}

	defRange(NEG_INT, []string{
		"neg-int", "not-int", "neg-long", "not-long", "neg-float", "neg-double",
		"int-to-long", "int-to-float", "int-to-double", "long-to-int", "long-to-float",
		"long-to-double", "float-to-int", "float-to-long", "float-to-double",
		"double-to-int", "double-to-long", "double-to-float", "int-to-byte",
		"int-to-char", "int-to-short",
	}, Fmt12x, cont)

	binops := []string{
		"add-int", "sub-int", "mul-int", "div-int", "rem-int", "and-int", "or-int",
		"xor-int", "shl-int", "shr-int", "ushr-int", "add-long", "sub-long", "mul-long",
		"div-long", "rem-long", "and-long", "or-long", "xor-long", "shl-long", "shr-long",
		"ushr-long", "add-float", "sub-float", "mul-float", "div-float", "rem-float",
		"add-double", "sub-double", "mul-double", "div-double", "rem-double",
	}
	for i, name := range binops {
		flags := binopFlags(name)
		def(ADD_INT+Opcode(i), name, Fmt23x, flags)
		def(ADD_INT_2ADDR+Opcode(i), name+"/2addr", Fmt12x, flags)
	}

	lit16 := []string{"add-int", "rsub-int", "mul-int", "div-int", "rem-int", "and-int", "or-int", "xor-int"}
	for i, name := range lit16 {
		// rsub-int keeps its bare name in the lit16 form
		suffix := "/lit16"
		if name == "rsub-int" {
			suffix = ""
		}
		def(ADD_INT_LIT16+Opcode(i), name+suffix, Fmt22s, binopFlags(name))
	}
	lit8 := []string{"add-int", "rsub-int", "mul-int", "div-int", "rem-int", "and-int", "or-int", "xor-int", "shl-int", "shr-int", "ushr-int"}
	for i, name := range lit8 {
		def(ADD_INT_LIT8+Opcode(i), name+"/lit8", Fmt22b, binopFlags(name))
	}
}

// integer division and remainder throw ArithmeticException
func binopFlags(name string) OpFlags {
	switch name {
	case "div-int", "rem-int", "div-long", "rem-long":
		return contThrow
	}
	return cont
}

// Width returns the fixed width in code units of op, or 0 if op is unused.
// Payload pseudo-instructions share opcode NOP and are measured with
// PayloadWidth instead.
func Width(op Opcode) int {
	return opcodeTable[op].format.Width()
}

func OpcodeName(op Opcode) string {
	if name := opcodeTable[op].name; name != "" {
		return name
	}
	return "unused"
}

func OpcodeFormat(op Opcode) Format {
	return opcodeTable[op].format
}

func OpcodeFlags(op Opcode) OpFlags {
	return opcodeTable[op].flags
}

// IsValid reports whether op is assigned in the instruction set.
func IsValid(op Opcode) bool {
	return opcodeTable[op].format != FmtUnused
}

// IsAllocation reports whether op allocates a not-yet-initialized object.
func IsAllocation(op Opcode) bool {
	return op == NEW_INSTANCE
}

// IsBranch reports whether op is a single-target goto or if-* instruction.
func IsBranch(op Opcode) bool {
	return opcodeTable[op].flags&CanBranch != 0
}

func IsSwitch(op Opcode) bool {
	return op == PACKED_SWITCH || op == SPARSE_SWITCH
}

// DecodeOpcode extracts the opcode from the first code unit of an instruction.
func DecodeOpcode(unit uint16) Opcode {
	return Opcode(unit & 0xff)
}

func (op Opcode) String() string {
	return OpcodeName(op)
}
