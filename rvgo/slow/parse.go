package slow

// Functions to parse the instruction field values from different types of RISC-V instructions
// These should 1:1 match with the same definitions in the fast package.

func parseImmTypeI(instr U32) U32 {
	return signExtend32(shr32(toU32(20), instr), toU32(11))
}

func parseShamt(instr U32) U32 {
	return and32(shr32(toU32(20), instr), toU32(0x1F))
}

func parseImmTypeS(instr U32) U32 {
	return signExtend32(or32(shl32(toU32(5), shr32(toU32(25), instr)), and32(shr32(toU32(7), instr), toU32(0x1F))), toU32(11))
}

func parseImmTypeB(instr U32) U32 {
	return signExtend32(
		or32(
			or32(
				shl32(toU32(1), and32(shr32(toU32(8), instr), toU32(0xF))),
				shl32(toU32(5), and32(shr32(toU32(25), instr), toU32(0x3F))),
			),
			or32(
				shl32(toU32(11), and32(shr32(toU32(7), instr), toU32(1))),
				shl32(toU32(12), shr32(toU32(31), instr)),
			),
		),
		toU32(12),
	)
}

func parseImmTypeU(instr U32) U32 {
	return shl32(toU32(12), shr32(toU32(12), instr))
}

func parseImmTypeJ(instr U32) U32 {
	return signExtend32(
		or32(
			or32(
				shl32(toU32(1), and32(shr32(toU32(21), instr), shortToU32(0x3FF))),
				shl32(toU32(11), and32(shr32(toU32(20), instr), toU32(1))),
			),
			or32(
				shl32(toU32(12), and32(shr32(toU32(12), instr), toU32(0xFF))),
				shl32(toU32(20), shr32(toU32(31), instr)),
			),
		),
		toU32(20),
	)
}

func parseOpcode(instr U32) U32 {
	return and32(instr, toU32(0x7F))
}

func parseRd(instr U32) U32 {
	return and32(shr32(toU32(7), instr), toU32(0x1F))
}

func parseFunct3(instr U32) U32 {
	return and32(shr32(toU32(12), instr), toU32(0x7))
}

func parseRs1(instr U32) U32 {
	return and32(shr32(toU32(15), instr), toU32(0x1F))
}

func parseRs2(instr U32) U32 {
	return and32(shr32(toU32(20), instr), toU32(0x1F))
}

func parseFunct7(instr U32) U32 {
	return shr32(toU32(25), instr)
}

func parseFunct12(instr U32) U32 {
	return shr32(toU32(20), instr)
}
