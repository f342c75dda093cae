package slow

import "github.com/holiman/uint256"

// Exported entry points, for differential testing against the fast package.

func NewU32(v uint32) U32 {
	return U32(*uint256.NewInt(uint64(v)))
}

func Val(v U32) uint32 {
	return v.val()
}

func ParseImmTypeI(instr U32) U32 {
	return parseImmTypeI(instr)
}

func ParseShamt(instr U32) U32 {
	return parseShamt(instr)
}

func ParseImmTypeS(instr U32) U32 {
	return parseImmTypeS(instr)
}

func ParseImmTypeB(instr U32) U32 {
	return parseImmTypeB(instr)
}

func ParseImmTypeU(instr U32) U32 {
	return parseImmTypeU(instr)
}

func ParseImmTypeJ(instr U32) U32 {
	return parseImmTypeJ(instr)
}

func ParseOpcode(instr U32) U32 {
	return parseOpcode(instr)
}

func ParseRd(instr U32) U32 {
	return parseRd(instr)
}

func ParseFunct3(instr U32) U32 {
	return parseFunct3(instr)
}

func ParseRs1(instr U32) U32 {
	return parseRs1(instr)
}

func ParseRs2(instr U32) U32 {
	return parseRs2(instr)
}

func ParseFunct7(instr U32) U32 {
	return parseFunct7(instr)
}

func ParseFunct12(instr U32) U32 {
	return parseFunct12(instr)
}

func SignExtend(v U32, bit U32) U32 {
	return signExtend32(v, bit)
}

func Compute(fn, a, b U32) U32 {
	return compute(fn, a, b)
}
