package fast

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
