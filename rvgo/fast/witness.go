package fast

import (
	"encoding/binary"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// BusAccess is a retired bus transaction, with the merkle proof of the touched word
// when it lives in ROM or RAM.
type BusAccess struct {
	Txn   Transaction
	Proof []byte
}

type StepWitness struct {
	// encoded state witness
	State StateWitness

	Accesses []BusAccess

	// Cycles is the number of clocks the step took
	Cycles uint64
}

// EncodeAccesses packs every access as addr, wdata, rdata, flags, followed by its proof if any.
// flags bit 0 = write, bits 2:1 = width, bit 3 = proof present.
func (wit *StepWitness) EncodeAccesses() []byte {
	out := make([]byte, 0, len(wit.Accesses)*(13+ProofLen*32))
	for _, a := range wit.Accesses {
		out = binary.BigEndian.AppendUint32(out, a.Txn.Addr)
		out = binary.BigEndian.AppendUint32(out, a.Txn.WData)
		out = binary.BigEndian.AppendUint32(out, a.Txn.RData)
		flags := boolByte(a.Txn.Write) | byte(a.Txn.Width&3)<<1
		if len(a.Proof) > 0 {
			flags |= 1 << 3
		}
		out = append(out, flags)
		out = append(out, a.Proof...)
	}
	return out
}

// HasStore reports whether the step changed ROM, RAM or a peripheral register.
func (wit *StepWitness) HasStore() bool {
	for _, a := range wit.Accesses {
		if a.Txn.Write && region(a.Txn.Addr) != riscv.RegionROM {
			return true
		}
	}
	return false
}
