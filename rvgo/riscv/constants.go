package riscv

// RV32I opcodes (instr[6:0])
const (
	OpLoad   = 0x03 // 000_0011
	OpFence  = 0x0F // 000_1111
	OpImm    = 0x13 // 001_0011
	OpAUIPC  = 0x17 // 001_0111
	OpStore  = 0x23 // 010_0011
	OpReg    = 0x33 // 011_0011
	OpLUI    = 0x37 // 011_0111
	OpBranch = 0x63 // 110_0011
	OpJALR   = 0x67 // 110_0111
	OpJAL    = 0x6F // 110_1111
	OpSystem = 0x73 // 111_0011
)

// funct3 values
const (
	F3BEQ  = 0b000
	F3BNE  = 0b001
	F3BLT  = 0b100
	F3BGE  = 0b101
	F3BLTU = 0b110
	F3BGEU = 0b111

	F3LB  = 0b000
	F3LH  = 0b001
	F3LW  = 0b010
	F3LBU = 0b100
	F3LHU = 0b101

	F3SB = 0b000
	F3SH = 0b001
	F3SW = 0b010

	F3ADD  = 0b000 // also SUB
	F3SLL  = 0b001
	F3SLT  = 0b010
	F3SLTU = 0b011
	F3XOR  = 0b100
	F3SR   = 0b101 // SRL / SRA
	F3OR   = 0b110
	F3AND  = 0b111

	F3Priv   = 0b000 // ECALL / EBREAK / MRET / WFI
	F3CSRRW  = 0b001
	F3CSRRS  = 0b010
	F3CSRRC  = 0b011
	F3CSRRWI = 0b101
	F3CSRRSI = 0b110
	F3CSRRCI = 0b111
)

// funct7 values
const (
	F7Base = 0b0000000
	F7Alt  = 0b0100000 // SUB, SRA, SRAI
)

// funct12 values of the privileged SYSTEM instructions
const (
	Funct12ECALL  = 0x000
	Funct12EBREAK = 0x001
	Funct12MRET   = 0x302
	Funct12WFI    = 0x105
)

// ALU function selectors (4 bits). Any other selector yields zero.
const (
	ALUAdd  = 0b0001
	ALUSlt  = 0b0010
	ALUSltu = 0b0011
	ALUXor  = 0b0100
	ALUOr   = 0b0101
	ALUAnd  = 0b0110
	ALUSll  = 0b0111
	ALUSrl  = 0b1000
	ALUSra  = 0b1001
	ALUSub  = 0b1010
)

// CSR addresses
const (
	CSRMvendorid     = 0xF11
	CSRMarchid       = 0xF12
	CSRMimpid        = 0xF13
	CSRMhartid       = 0xF14
	CSRMstatus       = 0x300
	CSRMisa          = 0x301
	CSRMie           = 0x304
	CSRMtvec         = 0x305
	CSRMstatush      = 0x310
	CSRMcountinhibit = 0x320
	CSRMscratch      = 0x340
	CSRMepc          = 0x341
	CSRMcause        = 0x342
	CSRMtval         = 0x343
	CSRMip           = 0x344
	CSRMcycle        = 0xB00
	CSRMinstret      = 0xB02
	CSRMcycleh       = 0xB80
	CSRMinstreth     = 0xB82
)

// mstatus / mie / mip / mcountinhibit / mtvec fields
const (
	MstatusMIE  = 1 << 3
	MstatusMPIE = 1 << 7
	MstatusMPP  = 0b11 << 11

	MieMSIE = 1 << 3
	MieMTIE = 1 << 7
	MieMEIE = 1 << 11

	MipMSIP = 1 << 3
	MipMTIP = 1 << 7
	MipMEIP = 1 << 11

	McountinhibitCY = 1 << 0
	McountinhibitIR = 1 << 2

	MtvecModeMask     = 0b11
	MtvecModeDirect   = 0b00
	MtvecModeVectored = 0b01

	// MISA for RV32I: MXL=1 (32 bit), extension I.
	MisaRV32I = 0x4000_0100
)

// Synchronous exception cause codes (mcause, interrupt bit clear).
// The load/store misaligned codes follow the privileged architecture numbering.
const (
	CauseInstructionMisaligned = 1
	CauseIllegalInstruction    = 2
	CauseBreakpoint            = 3
	CauseLoadMisaligned        = 4
	CauseStoreMisaligned       = 6
	CauseECallMMode            = 11
)

// Address map: the 3 most significant bits select the region.
const (
	RegionShift = 29
	RegionMask  = 0x1FFF_FFFF

	RegionROM        = 0b000
	RegionRAM        = 0b001
	RegionPeripheral = 0b010

	ROMBase        = 0x0000_0000
	RAMBase        = 0x2000_0000
	PeripheralBase = 0x4000_0000
)

// Peripheral register blocks, as offsets into the peripheral region.
const (
	PeriphGPIO    = 0x0000
	PeriphGPIOMux = 0x0100
	PeriphNPX1    = 0x0200
	PeriphNPX2    = 0x0300
	PeriphNPX3    = 0x0400
	PeriphNPX4    = 0x0500
	PeriphPWM1    = 0x0600
	PeriphPWM2    = 0x0700
	PeriphPWM3    = 0x0800
	PeriphPWM4    = 0x0900
	PeriphBlock   = 0x0100
)

// Bus access widths, as encoded by funct3[1:0] of loads and stores.
const (
	WidthByte = 0b00
	WidthHalf = 0b01
	WidthWord = 0b10
)

// Internal error codes attached to reverted steps.
const (
	ErrInvalidFSMState = uint64(0xbadf5e00)
	ErrBusNotIdle      = uint64(0xbadb0500)
	ErrInvalidBusWidth = uint64(0xbadb0502)
	ErrUnknownCSRMode  = uint64(0xbadc0de0)
)
