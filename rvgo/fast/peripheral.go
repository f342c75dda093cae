package fast

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/exp/slices"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// RegisterBlock is the bus-facing side of a peripheral: a bank of word registers.
// What the peripheral does with them is outside of the core.
type RegisterBlock struct {
	Name string `json:"name"`
	// Base is the offset of the block within the peripheral region
	Base U32   `json:"base"`
	Regs []U32 `json:"regs"`
}

func NewRegisterBlock(name string, base U32, size U32) *RegisterBlock {
	return &RegisterBlock{Name: name, Base: base, Regs: make([]U32, size/4)}
}

func (b *RegisterBlock) Size() U32 {
	return U32(len(b.Regs)) * 4
}

func (b *RegisterBlock) Contains(offset U32) bool {
	return offset >= b.Base && offset-b.Base < b.Size()
}

// ReadWord reads the register at a word-aligned offset relative to the block base.
func (b *RegisterBlock) ReadWord(offset U32) U32 {
	i := offset / 4
	if i >= U32(len(b.Regs)) {
		return 0
	}
	return b.Regs[i]
}

func (b *RegisterBlock) WriteWord(offset U32, v U32) {
	i := offset / 4
	if i >= U32(len(b.Regs)) {
		return
	}
	b.Regs[i] = v
}

var ErrOverlappingBlocks = errors.New("overlapping peripheral register blocks")

// PeripheralMap sub-decodes the peripheral region with a range table of register blocks.
type PeripheralMap struct {
	// sorted by base offset, non-overlapping
	Blocks []*RegisterBlock `json:"blocks"`
}

func NewPeripheralMap(blocks ...*RegisterBlock) (*PeripheralMap, error) {
	out := &PeripheralMap{Blocks: slices.Clone(blocks)}
	if err := out.sort(); err != nil {
		return nil, err
	}
	return out, nil
}

func (pm *PeripheralMap) sort() error {
	slices.SortFunc(pm.Blocks, func(a, b *RegisterBlock) int {
		switch {
		case a.Base < b.Base:
			return -1
		case a.Base > b.Base:
			return 1
		default:
			return 0
		}
	})
	for i := 1; i < len(pm.Blocks); i++ {
		prev := pm.Blocks[i-1]
		if prev.Contains(pm.Blocks[i].Base) || prev.Base == pm.Blocks[i].Base {
			return fmt.Errorf("%w: %q and %q", ErrOverlappingBlocks, prev.Name, pm.Blocks[i].Name)
		}
	}
	return nil
}

// DefaultPeripherals lays out GPIO, the GPIO mux, four NeoPixel strings and four PWM channels,
// one 256 byte block each.
func DefaultPeripherals() *PeripheralMap {
	pm, err := NewPeripheralMap(
		NewRegisterBlock("gpio", riscv.PeriphGPIO, riscv.PeriphBlock),
		NewRegisterBlock("gpio-mux", riscv.PeriphGPIOMux, riscv.PeriphBlock),
		NewRegisterBlock("npx1", riscv.PeriphNPX1, riscv.PeriphBlock),
		NewRegisterBlock("npx2", riscv.PeriphNPX2, riscv.PeriphBlock),
		NewRegisterBlock("npx3", riscv.PeriphNPX3, riscv.PeriphBlock),
		NewRegisterBlock("npx4", riscv.PeriphNPX4, riscv.PeriphBlock),
		NewRegisterBlock("pwm1", riscv.PeriphPWM1, riscv.PeriphBlock),
		NewRegisterBlock("pwm2", riscv.PeriphPWM2, riscv.PeriphBlock),
		NewRegisterBlock("pwm3", riscv.PeriphPWM3, riscv.PeriphBlock),
		NewRegisterBlock("pwm4", riscv.PeriphPWM4, riscv.PeriphBlock),
	)
	if err != nil {
		panic(err)
	}
	return pm
}

func (pm *PeripheralMap) lookup(offset U32) (*RegisterBlock, bool) {
	i, found := slices.BinarySearchFunc(pm.Blocks, offset, func(b *RegisterBlock, off U32) int {
		switch {
		case b.Base < off:
			return -1
		case b.Base > off:
			return 1
		default:
			return 0
		}
	})
	if found {
		return pm.Blocks[i], true
	}
	if i > 0 && pm.Blocks[i-1].Contains(offset) {
		return pm.Blocks[i-1], true
	}
	return nil, false
}

// Block returns the register block with the given name.
func (pm *PeripheralMap) Block(name string) (*RegisterBlock, bool) {
	i := slices.IndexFunc(pm.Blocks, func(b *RegisterBlock) bool { return b.Name == name })
	if i < 0 {
		return nil, false
	}
	return pm.Blocks[i], true
}

// ReadWord routes a read to the block containing offset. Unclaimed offsets read zero.
func (pm *PeripheralMap) ReadWord(offset U32) U32 {
	b, ok := pm.lookup(offset)
	if !ok {
		return 0
	}
	return b.ReadWord(offset - b.Base)
}

// WriteWord routes a write to the block containing offset. Unclaimed offsets drop the write.
func (pm *PeripheralMap) WriteWord(offset U32, v U32) {
	b, ok := pm.lookup(offset)
	if !ok {
		return
	}
	b.WriteWord(offset-b.Base, v)
}

// Hash commits to the layout and contents of every register block.
func (pm *PeripheralMap) Hash() [32]byte {
	var out []byte
	for _, b := range pm.Blocks {
		out = binary.BigEndian.AppendUint32(out, b.Base)
		out = binary.BigEndian.AppendUint32(out, U32(len(b.Regs)))
		for _, r := range b.Regs {
			out = binary.BigEndian.AppendUint32(out, r)
		}
	}
	return crypto.Keccak256Hash(out)
}

func (pm *PeripheralMap) UnmarshalJSON(data []byte) error {
	type peripheralMap PeripheralMap
	var in peripheralMap
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*pm = PeripheralMap(in)
	return pm.sort()
}
