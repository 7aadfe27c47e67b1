package asm

// Base opcodes. Most register- or condition-code-selected families occupy a
// contiguous run of eight values starting at the named base (base+index);
// that pattern is called out per group below.
const (
	opNop          = 0x00
	opLdiBase      = 0x01 // +reg, LDI Rr, imm16
	opAddiReg      = 0x09 // ADDI Rd, imm16 (register given as a following byte)
	opSubiReg      = 0x0A
	opAndiReg      = 0x0B
	opOriReg       = 0x0C
	opXoriReg      = 0x0D
	opCmpiReg      = 0x0E
	opHalt         = 0x0F
	opAddReg       = 0x10
	opSubReg       = 0x11
	opAndReg       = 0x12
	opOrReg        = 0x13
	opXorReg       = 0x14
	opCmpReg       = 0x15
	opAdcReg       = 0x16
	opSbcReg       = 0x17
	opAddAccBase   = 0x18 // +reg
	opSubAccBase   = 0x20
	opAndAccBase   = 0x28
	opOrAccBase    = 0x30
	opXorAccBase   = 0x38
	opCmpAccBase   = 0x40
	opNegAcc       = 0x48
	opNotAcc       = 0x49
	opSwapAcc      = 0x4A
	opCcf          = 0x4B
	opScf          = 0x4C
	opRcf          = 0x4D
	opSyscall      = 0x4E
	opEnter        = 0x4F
	opLeave        = 0x50
	opJmpImm       = 0x51
	opJmpIndirBase = 0x52 // +reg
	opJr           = 0x5A
	opJccBase      = 0x5B // +cc
	opJrccBase     = 0x63 // +cc
	opDjnz         = 0x6B
	opAddSp        = 0x6C
	opPushRegBase  = 0x6D // +reg
	opPopRegBase   = 0x75 // +reg
	opPushImm      = 0x7D
	opPushF        = 0x7E
	opPopF         = 0x7F
	opLdRegRegBase = 0x80 // +((rd<<3)|rs)
	opAddiAcc      = 0xC0
	opSubiAcc      = 0xC1
	opAndiAcc      = 0xC2
	opOriAcc       = 0xC3
	opXoriAcc      = 0xC4
	opCmpiAcc      = 0xC5
	opAdciAcc      = 0xC6
	opSbciAcc      = 0xC7
	opCallImm      = 0xC8
	opCallIndir    = 0xC9 // +reg
	opCallccBase   = 0xD1 // +cc
	opDecBase      = 0xD9 // +reg
	opIncBase      = 0xE1 // +reg
	opLdAbsBase    = 0xE9 // +reg
	opStAbsBase    = 0xF1 // +reg
	opRet          = 0xF9
	opReti         = 0xFA
	opEi           = 0xFB
	opDi           = 0xFC
	prefixFD       = 0xFD
	prefixFE       = 0xFE
	prefixFF       = 0xFF
)

// 0xFD-prefixed sub-opcodes: byte ALU/shift/bit/LDI.b family.
const (
	subSra        = 0x00 // +reg
	subShl        = 0x08
	subShr        = 0x10
	subRol        = 0x18
	subRor        = 0x20
	subAddBAcc    = 0x28
	subSubBAcc    = 0x30
	subAndBAcc    = 0x38
	subOrBAcc     = 0x40
	subXorBAcc    = 0x48
	subCmpBAcc    = 0x50
	subBitReg     = 0x58 // +bitIndex
	subSetReg     = 0x60
	subResReg     = 0x68
	subBitAbs     = 0x70
	subSetAbs     = 0x78
	subResAbs     = 0x80
	subBitIndir   = 0x88
	subSetIndir   = 0x90
	subResIndir   = 0x98
	subLdiBBase   = 0xA0 // +reg
)

// 0xFE-prefixed sub-opcodes: word/byte indirect load-store, (rd<<3)|rs packed.
const (
	subLdIndir  = 0x00
	subStIndir  = 0x40
	subLdBIndir = 0x80
	subStBIndir = 0xC0
)

// 0xFF-prefixed sub-opcodes: indexed/LEA/post-inc/pre-dec family.
const (
	subLdIndex     = 0x00 // +((rd<<3)|rs), then offset byte
	subStIndex     = 0x40
	subLea         = 0x80
	subLdPostInc   = 0xC0 // +pointerReg, data byte = other register
	subStPostInc   = 0xC8
	subLdPreDec    = 0xD0
	subStPreDec    = 0xD8
	subLdBPostInc  = 0xE0
	subStBPostInc  = 0xE8
	subLdBPreDec   = 0xF0
	subStBPreDec   = 0xF8
)

// Syscall IDs the far-call expansion emits.
const (
	syscallCallFar = 0x21
	syscallJmpFar  = 0x22
)

// farCallScratchBank, farCallScratchAddr are the two scratch registers the
// synthetic far-call/jmp sequences stage the target bank/address into
// before trapping to the firmware trampoline.
const (
	farCallScratchBank = R4
	farCallScratchAddr = R5
)
