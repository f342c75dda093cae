package fast

// Fast equivalent of the 32-bit yul-style functions of slow-mode.
// Every value is a plain Go uint32; wrapping is the defined behavior.

type U32 = uint32

func toU32(v uint8) U32 { return uint32(v) }

func shortToU32(v uint16) U32 {
	return uint32(v)
}

func u32Mask() U32 { // max uint32
	return 0xFFFF_FFFF
}

// signExtend32 treats bit as the sign bit of v, and extends it into all higher bits.
func signExtend32(v U32, bit U32) U32 {
	switch and32(v, shl32(bit, 1)) {
	case 0:
		// fill with zeroes, by masking
		return and32(v, shr32(sub32(31, bit), u32Mask()))
	default:
		// fill with ones, by or-ing
		return or32(v, shl32(bit, shr32(bit, u32Mask())))
	}
}

func add32(x, y U32) U32 {
	return x + y
}

func sub32(x, y U32) U32 {
	return x - y
}

func not32(x U32) U32 {
	return ^x
}

func lt32(x, y U32) U32 {
	if x < y {
		return 1
	} else {
		return 0
	}
}

func slt32(x, y U32) U32 {
	if int32(x) < int32(y) {
		return 1
	} else {
		return 0
	}
}

func eq32(x, y U32) U32 {
	if x == y {
		return 1
	} else {
		return 0
	}
}

func iszero32(x U32) bool {
	return x == 0
}

func and32(x, y U32) U32 {
	return x & y
}

func or32(x, y U32) U32 {
	return x | y
}

func xor32(x, y U32) U32 {
	return x ^ y
}

// shl32 shifts y left by x
func shl32(x, y U32) U32 {
	return y << x
}

// shr32 shifts y right by x, filling with zeroes
func shr32(x, y U32) U32 {
	return y >> x
}

// sar32 shifts y right by x, extending the sign bit
func sar32(x, y U32) U32 {
	return uint32(int32(y) >> x)
}
