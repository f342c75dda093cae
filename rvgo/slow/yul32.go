package slow

import "github.com/holiman/uint256"

// These are type-safe pure functions *styled to translate to yul*, to use uint256 variables for 32 bit math.
// Shift functions take the shift amount first, like the yul opcodes.

// U32 is like a Go uint32, always within range, but represented as uint256 in memory with 0 padding.
type U32 uint256.Int

func (v U32) val() uint32 {
	return uint32((*uint256.Int)(&v).Uint64())
}

func toU256(v uint8) U256 {
	return *uint256.NewInt(uint64(v))
}

func toU32(v uint8) U32 {
	return U32(toU256(v))
}

func shortToU32(v uint16) U32 {
	return U32(*uint256.NewInt(uint64(v)))
}

func u256ToU32(v U256) U32 {
	return U32(and(v, U256(u32Mask())))
}

func u32Mask() U32 { // max uint32
	return U32(shr(toU256(224), not(U256{}))) // 256-32 = 224
}

func u32Mod() U256 { // 1 << 32
	return shl(toU256(32), toU256(1))
}

func u32TopBit() U256 { // 1 << 31
	return shl(toU256(31), toU256(1))
}

// signExtend32 treats bit as the sign bit of v, and extends it into all higher bits.
func signExtend32(v U32, bit U32) U32 {
	switch and(U256(v), shl(U256(bit), toU256(1))) {
	case U256{}:
		// fill with zeroes, by masking
		return U32(and(U256(v), shr(sub(toU256(31), U256(bit)), U256(u32Mask()))))
	default:
		// fill with ones, by or-ing
		return U32(or(U256(v), shl(U256(bit), shr(U256(bit), U256(u32Mask())))))
	}
}

func signExtend32To256(v U32) U256 {
	switch and(U256(v), u32TopBit()) {
	case U256{}:
		return U256(v)
	default:
		return or(shl(toU256(32), not(U256{})), U256(v))
	}
}

func add32(x, y U32) (out U32) {
	out = U32(mod(add(U256(x), U256(y)), u32Mod()))
	return
}

func sub32(x, y U32) (out U32) {
	out = U32(mod(sub(add(U256(x), u32Mod()), U256(y)), u32Mod()))
	return
}

func not32(x U32) (out U32) {
	out = u256ToU32(not(U256(x)))
	return
}

func lt32(x, y U32) (out U32) {
	out = U32(lt(U256(x), U256(y)))
	return
}

func slt32(x, y U32) (out U32) {
	out = U32(slt(signExtend32To256(x), signExtend32To256(y)))
	return
}

func eq32(x, y U32) (out U32) {
	out = U32(eq(U256(x), U256(y)))
	return
}

func iszero32(x U32) bool {
	return iszero(U256(x))
}

func and32(x, y U32) (out U32) {
	out = U32(and(U256(x), U256(y)))
	return
}

func or32(x, y U32) (out U32) {
	out = U32(or(U256(x), U256(y)))
	return
}

func xor32(x, y U32) (out U32) {
	out = U32(xor(U256(x), U256(y)))
	return
}

// shl32 shifts y left by x
func shl32(x, y U32) (out U32) {
	out = u256ToU32(shl(U256(x), U256(y)))
	return
}

// shr32 shifts y right by x, filling with zeroes
func shr32(x, y U32) (out U32) {
	out = U32(shr(U256(x), U256(y)))
	return
}

// sar32 shifts y right by x, extending the sign bit
func sar32(x, y U32) (out U32) {
	out = u256ToU32(sar(U256(x), signExtend32To256(y)))
	return
}
