package fast

import (
	"errors"
	"fmt"
	"io"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

var (
	ErrBusBusy   = errors.New("bus transaction already in flight")
	ErrBusWidth  = errors.New("invalid bus access width")
	ErrBusRegion = errors.New("address outside of loadable storage")
)

// Target is a word-addressed bus slave. Offsets are word-aligned and relative to the region.
type Target interface {
	ReadWord(offset U32) U32
	WriteWord(offset U32, v U32)
}

// Transaction is the state of the bus handshake.
// Cyc is held from Issue until Retire, Ack is raised once the target has completed the access.
type Transaction struct {
	Addr  U32  `json:"addr"`
	WData U32  `json:"wdata"`
	RData U32  `json:"rdata"`
	Write bool `json:"write"`
	Width U32  `json:"width"`
	Cyc   bool `json:"cyc"`
	Ack   bool `json:"ack"`
	// Remaining wait states before the target acknowledges
	Remaining U32 `json:"remaining"`
}

// Bus routes transactions by the 3 most significant address bits.
type Bus struct {
	ROM         *Storage       `json:"rom"`
	RAM         *Storage       `json:"ram"`
	Peripherals *PeripheralMap `json:"peripherals"`

	// wait states of the ROM, RAM and peripheral regions
	WaitStates [3]U32 `json:"waitStates"`

	Txn Transaction `json:"txn"`

	onAccess func(txn Transaction)
}

func NewBus(cfg Config) *Bus {
	return &Bus{
		ROM:         NewStorage(cfg.ROMSize),
		RAM:         NewStorage(cfg.RAMSize),
		Peripherals: DefaultPeripherals(),
		WaitStates:  [3]U32{cfg.ROMWaitStates, cfg.RAMWaitStates, cfg.PeripheralWaitStates},
	}
}

// SetAccessHook registers fn to observe every retired transaction.
func (b *Bus) SetAccessHook(fn func(txn Transaction)) {
	b.onAccess = fn
}

func region(addr U32) U32 {
	return shr32(toU32(riscv.RegionShift), addr)
}

// route returns the target of an address, whether it accepts writes, and its wait states.
// Unmapped regions have no target.
func (b *Bus) route(addr U32) (t Target, writable bool, waits U32) {
	switch region(addr) {
	case riscv.RegionROM:
		return b.ROM, false, b.WaitStates[0]
	case riscv.RegionRAM:
		return b.RAM, true, b.WaitStates[1]
	case riscv.RegionPeripheral:
		return b.Peripherals, true, b.WaitStates[2]
	default:
		return nil, false, 0
	}
}

func widthMask(width U32) (U32, bool) {
	switch width {
	case riscv.WidthByte:
		return 0xFF, true
	case riscv.WidthHalf:
		return 0xFFFF, true
	case riscv.WidthWord:
		return 0xFFFF_FFFF, true
	default:
		return 0, false
	}
}

func (b *Bus) Busy() bool {
	return b.Txn.Cyc
}

// Issue starts a transaction. The target acknowledges after its region's wait states.
func (b *Bus) Issue(addr, wdata U32, write bool, width U32) error {
	if b.Txn.Cyc {
		return fmt.Errorf("%w: %08x", ErrBusBusy, b.Txn.Addr)
	}
	if _, ok := widthMask(width); !ok {
		return fmt.Errorf("%w: %d", ErrBusWidth, width)
	}
	_, _, waits := b.route(addr)
	b.Txn = Transaction{
		Addr:      addr,
		WData:     wdata,
		Write:     write,
		Width:     width,
		Cyc:       true,
		Remaining: waits,
	}
	return nil
}

// Clock advances the in-flight transaction by one clock.
func (b *Bus) Clock() {
	if !b.Txn.Cyc || b.Txn.Ack {
		return
	}
	if b.Txn.Remaining > 0 {
		b.Txn.Remaining -= 1
		return
	}
	b.complete()
	b.Txn.Ack = true
}

// complete performs the access against the target.
// Reads return the containing word shifted down to the addressed byte.
// Sub-word writes are a masked read-modify-write of the containing word.
func (b *Bus) complete() {
	txn := &b.Txn
	t, writable, _ := b.route(txn.Addr)
	if t == nil {
		txn.RData = 0
		return
	}
	offset := and32(txn.Addr, riscv.RegionMask)
	word := and32(offset, not32(3))
	shamt := shl32(toU32(3), and32(offset, toU32(3)))
	if !txn.Write {
		txn.RData = shr32(shamt, t.ReadWord(word))
		return
	}
	if !writable {
		return // acknowledged, without effect
	}
	mask, _ := widthMask(txn.Width)
	mask = shl32(shamt, mask)
	cur := t.ReadWord(word)
	t.WriteWord(word, or32(and32(cur, not32(mask)), and32(shl32(shamt, txn.WData), mask)))
}

// Retire consumes an acknowledged transaction, and frees the bus.
func (b *Bus) Retire() (Transaction, bool) {
	if !b.Txn.Ack {
		return Transaction{}, false
	}
	txn := b.Txn
	b.Txn = Transaction{}
	if b.onAccess != nil {
		b.onAccess(txn)
	}
	return txn, true
}

// storage returns the backing storage of a region, if the region is storage-backed.
func (b *Bus) storage(addr U32) (*Storage, bool) {
	switch region(addr) {
	case riscv.RegionROM:
		return b.ROM, true
	case riscv.RegionRAM:
		return b.RAM, true
	default:
		return nil, false
	}
}

// LoadRange copies program data into ROM or RAM, bypassing the bus handshake.
func (b *Bus) LoadRange(addr U32, r io.Reader) error {
	s, ok := b.storage(addr)
	if !ok {
		return fmt.Errorf("%w: %08x", ErrBusRegion, addr)
	}
	return s.SetRange(and32(addr, riscv.RegionMask), r)
}

// Peek reads a word directly from the backing target, without a transaction.
func (b *Bus) Peek(addr U32) U32 {
	t, _, _ := b.route(addr)
	if t == nil {
		return 0
	}
	return shr32(shl32(toU32(3), and32(addr, toU32(3))), t.ReadWord(and32(addr, riscv.RegionMask&^3)))
}
