package fast

// Registers is the general purpose register file. x0 is hard-wired to zero.
type Registers [32]U32

func (r *Registers) Read(i Reg) U32 {
	i &= 0x1F
	if i == 0 {
		return 0
	}
	return r[i]
}

// Write discards any write to x0.
func (r *Registers) Write(i Reg, v U32) {
	i &= 0x1F
	if i == 0 {
		return
	}
	r[i] = v
}
