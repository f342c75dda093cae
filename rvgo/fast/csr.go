package fast

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// CSROp is the atomic operation of a CSR instruction, as encoded by funct3[1:0].
type CSROp U32

const (
	CSRWrite CSROp = 1 // ?01 = CSRRW(I)
	CSRSet   CSROp = 2 // ?10 = CSRRS(I)
	CSRClear CSROp = 3 // ?11 = CSRRC(I)
)

func (op CSROp) String() string {
	switch op {
	case CSRWrite:
		return "write"
	case CSRSet:
		return "set"
	case CSRClear:
		return "clear"
	default:
		return fmt.Sprintf("CSROp(%d)", U32(op))
	}
}

// CSRDescriptor describes one machine CSR.
// Bits outside ReadMask read as zero. Bits in ReadOnlyMask are never changed by software.
// SetMask and ClearMask bound the bits the set and clear operations may touch.
type CSRDescriptor struct {
	Name         string
	Addr         U32
	ReadMask     U32
	ReadOnlyMask U32
	SetMask      U32
	ClearMask    U32
	Reset        U32
}

// writable is the mask of bits a full write replaces.
func (d *CSRDescriptor) writable() U32 {
	return and32(d.ReadMask, not32(d.ReadOnlyMask))
}

// catalog indices
const (
	csrMvendorid = iota
	csrMarchid
	csrMimpid
	csrMhartid
	csrMstatus
	csrMisa
	csrMie
	csrMtvec
	csrMstatush
	csrMcountinhibit
	csrMscratch
	csrMepc
	csrMcause
	csrMtval
	csrMip
	csrMcycle
	csrMinstret
	csrMcycleh
	csrMinstreth
	csrCount
)

const (
	allBits  = 0xFFFF_FFFF
	mieBits  = riscv.MieMSIE | riscv.MieMTIE | riscv.MieMEIE
	mstatRW  = riscv.MstatusMIE | riscv.MstatusMPIE
	mstatAll = mstatRW | riscv.MstatusMPP
)

var csrCatalog = [csrCount]CSRDescriptor{
	csrMvendorid: {Name: "mvendorid", Addr: riscv.CSRMvendorid, ReadMask: allBits, ReadOnlyMask: allBits},
	csrMarchid:   {Name: "marchid", Addr: riscv.CSRMarchid, ReadMask: allBits, ReadOnlyMask: allBits},
	csrMimpid:    {Name: "mimpid", Addr: riscv.CSRMimpid, ReadMask: allBits, ReadOnlyMask: allBits},
	csrMhartid:   {Name: "mhartid", Addr: riscv.CSRMhartid, ReadMask: allBits, ReadOnlyMask: allBits},
	// MPP is hard-wired to M-mode, the only privilege level.
	csrMstatus: {Name: "mstatus", Addr: riscv.CSRMstatus, ReadMask: mstatAll, ReadOnlyMask: riscv.MstatusMPP,
		SetMask: mstatRW, ClearMask: mstatRW, Reset: riscv.MstatusMPP},
	csrMisa: {Name: "misa", Addr: riscv.CSRMisa, ReadMask: allBits, ReadOnlyMask: allBits, Reset: riscv.MisaRV32I},
	csrMie: {Name: "mie", Addr: riscv.CSRMie, ReadMask: mieBits,
		SetMask: mieBits, ClearMask: mieBits},
	// mode bit 1 is reserved, leaving direct and vectored
	csrMtvec: {Name: "mtvec", Addr: riscv.CSRMtvec, ReadMask: allBits, ReadOnlyMask: 0b10,
		SetMask: allBits, ClearMask: allBits},
	csrMstatush: {Name: "mstatush", Addr: riscv.CSRMstatush, ReadOnlyMask: allBits},
	csrMcountinhibit: {Name: "mcountinhibit", Addr: riscv.CSRMcountinhibit,
		ReadMask:  riscv.McountinhibitCY | riscv.McountinhibitIR,
		SetMask:   riscv.McountinhibitCY | riscv.McountinhibitIR,
		ClearMask: riscv.McountinhibitCY | riscv.McountinhibitIR},
	csrMscratch: {Name: "mscratch", Addr: riscv.CSRMscratch, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
	// IALIGN=32: the low two bits are always zero
	csrMepc: {Name: "mepc", Addr: riscv.CSRMepc, ReadMask: allBits, ReadOnlyMask: 0b11,
		SetMask: allBits, ClearMask: allBits},
	csrMcause: {Name: "mcause", Addr: riscv.CSRMcause, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
	csrMtval:  {Name: "mtval", Addr: riscv.CSRMtval, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
	// no interrupt sources are wired, pending bits read as zero
	csrMip:       {Name: "mip", Addr: riscv.CSRMip, ReadMask: mieBits, ReadOnlyMask: mieBits},
	csrMcycle:    {Name: "mcycle", Addr: riscv.CSRMcycle, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
	csrMinstret:  {Name: "minstret", Addr: riscv.CSRMinstret, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
	csrMcycleh:   {Name: "mcycleh", Addr: riscv.CSRMcycleh, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
	csrMinstreth: {Name: "minstreth", Addr: riscv.CSRMinstreth, ReadMask: allBits, SetMask: allBits, ClearMask: allBits},
}

var csrIndexByAddr = func() map[U32]int {
	out := make(map[U32]int, csrCount)
	for i := range csrCatalog {
		out[csrCatalog[i].Addr] = i
	}
	return out
}()

var csrIndexByName = func() map[string]int {
	out := make(map[string]int, csrCount)
	for i := range csrCatalog {
		out[csrCatalog[i].Name] = i
	}
	return out
}()

// LookupCSR returns the descriptor of the CSR at addr, if it is part of the catalog.
func LookupCSR(addr U32) (CSRDescriptor, bool) {
	i, ok := csrIndexByAddr[addr]
	if !ok {
		return CSRDescriptor{}, false
	}
	return csrCatalog[i], true
}

// CSRCatalog lists all implemented CSRs, ordered by address.
func CSRCatalog() []CSRDescriptor {
	out := slices.Clone(csrCatalog[:])
	slices.SortFunc(out, func(a, b CSRDescriptor) int {
		return int(a.Addr) - int(b.Addr)
	})
	return out
}

// CSRFile holds the values of the catalogued CSRs.
// Software accesses go through Access, hardware updates through Clock and the trap port.
type CSRFile struct {
	regs [csrCount]U32
	// catalog indices written by software since the last Clock
	written uint32
}

func NewCSRFile() *CSRFile {
	c := &CSRFile{}
	c.Reset()
	return c
}

func (c *CSRFile) Reset() {
	for i := range csrCatalog {
		c.regs[i] = and32(csrCatalog[i].Reset, csrCatalog[i].ReadMask)
	}
	c.written = 0
}

// Read returns the current value of a CSR without side effects. Unknown addresses read zero.
func (c *CSRFile) Read(addr U32) U32 {
	i, ok := csrIndexByAddr[addr]
	if !ok {
		return 0
	}
	return and32(c.regs[i], csrCatalog[i].ReadMask)
}

// Access performs one atomic read-modify-write and returns the value before the update.
// Set and clear with a zero source do not write. Unknown addresses read zero and drop the write.
func (c *CSRFile) Access(addr U32, op CSROp, src U32) (old U32) {
	i, ok := csrIndexByAddr[addr]
	if !ok {
		return 0
	}
	d := &csrCatalog[i]
	old = and32(c.regs[i], d.ReadMask)
	var v U32
	switch op {
	case CSRWrite:
		w := d.writable()
		v = or32(and32(old, not32(w)), and32(src, w))
	case CSRSet:
		if iszero32(src) {
			return old
		}
		v = or32(old, and32(and32(src, d.SetMask), not32(d.ReadOnlyMask)))
	case CSRClear:
		if iszero32(src) {
			return old
		}
		v = and32(old, not32(and32(and32(src, d.ClearMask), not32(d.ReadOnlyMask))))
	default:
		panic(fmt.Errorf("unknown CSR op: %d", U32(op)))
	}
	c.regs[i] = and32(v, d.ReadMask)
	c.written |= 1 << i
	return old
}

// Clock advances the hardware counters by one clock.
// mcycle counts every clock, minstret only when an instruction retired.
// A software write to a counter half in the same clock wins over the increment.
func (c *CSRFile) Clock(retired bool) {
	inhibit := c.regs[csrMcountinhibit]
	if iszero32(and32(inhibit, riscv.McountinhibitCY)) {
		c.tick(csrMcycle, csrMcycleh)
	}
	if retired && iszero32(and32(inhibit, riscv.McountinhibitIR)) {
		c.tick(csrMinstret, csrMinstreth)
	}
	c.written = 0
}

func (c *CSRFile) tick(lo, hi int) {
	if c.written&(1<<lo) != 0 {
		return
	}
	c.regs[lo] = add32(c.regs[lo], 1)
	if iszero32(c.regs[lo]) && c.written&(1<<hi) == 0 {
		c.regs[hi] = add32(c.regs[hi], 1)
	}
}

// Cycles returns the full 64 bit mcycle counter.
func (c *CSRFile) Cycles() uint64 {
	return uint64(c.regs[csrMcycleh])<<32 | uint64(c.regs[csrMcycle])
}

// Retired returns the full 64 bit minstret counter.
func (c *CSRFile) Retired() uint64 {
	return uint64(c.regs[csrMinstreth])<<32 | uint64(c.regs[csrMinstret])
}

// EnterTrap records the trap context and disables interrupts, saving the previous enable in MPIE.
func (c *CSRFile) EnterTrap(cause, epc, tval U32) {
	c.regs[csrMcause] = cause
	c.regs[csrMepc] = and32(epc, not32(csrCatalog[csrMepc].ReadOnlyMask))
	c.regs[csrMtval] = tval
	status := c.regs[csrMstatus]
	mpie := U32(0)
	if !iszero32(and32(status, riscv.MstatusMIE)) {
		mpie = riscv.MstatusMPIE
	}
	c.regs[csrMstatus] = or32(and32(status, not32(riscv.MstatusMIE|riscv.MstatusMPIE)), mpie)
}

// ExitTrap restores the interrupt enable from MPIE, sets MPIE, and returns mepc.
func (c *CSRFile) ExitTrap() U32 {
	status := c.regs[csrMstatus]
	mie := U32(0)
	if !iszero32(and32(status, riscv.MstatusMPIE)) {
		mie = riscv.MstatusMIE
	}
	c.regs[csrMstatus] = or32(or32(and32(status, not32(riscv.MstatusMIE)), mie), riscv.MstatusMPIE)
	return c.regs[csrMepc]
}

// TrapVector computes the handler address for a cause from mtvec.
func (c *CSRFile) TrapVector(cause U32) U32 {
	mtvec := c.regs[csrMtvec]
	base := and32(mtvec, not32(riscv.MtvecModeMask))
	if and32(mtvec, riscv.MtvecModeMask) == riscv.MtvecModeVectored {
		return add32(base, shl32(toU32(2), cause))
	}
	return base
}

func (c *CSRFile) MarshalJSON() ([]byte, error) {
	out := make(map[string]U32, csrCount)
	for i := range csrCatalog {
		out[csrCatalog[i].Name] = c.regs[i]
	}
	return json.Marshal(out)
}

func (c *CSRFile) UnmarshalJSON(data []byte) error {
	var in map[string]U32
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Reset()
	for name, v := range in {
		i, ok := csrIndexByName[name]
		if !ok {
			return fmt.Errorf("unknown CSR %q", name)
		}
		c.regs[i] = and32(v, csrCatalog[i].ReadMask)
	}
	return nil
}

// encodeWitness appends every CSR in catalog order, big endian
func (c *CSRFile) encodeWitness(out []byte) []byte {
	for _, v := range c.regs {
		out = binary.BigEndian.AppendUint32(out, v)
	}
	return out
}
