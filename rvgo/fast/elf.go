package fast

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"sort"
)

var ErrNotRV32 = errors.New("not a 32 bit little-endian RISC-V ELF")

func LoadELF(f *elf.File, cfg Config) (*VMState, error) {
	if f.Class != elf.ELFCLASS32 || f.Data != elf.ELFDATA2LSB || f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("%w: class %s, data %s, machine %s", ErrNotRV32, f.Class, f.Data, f.Machine)
	}
	out, err := NewVMState(cfg)
	if err != nil {
		return nil, err
	}

	// statically prepare VM state:
	out.PC = U32(f.Entry)

	for i, prog := range f.Progs {
		if prog.Type == 0x70000003 {
			// RISC-V reuses the MIPS_ABIFLAGS program type to type its segment with the `.riscv.attributes` section.
			// See: https://github.com/riscv-non-isa/riscv-elf-psabi-doc/blob/master/riscv-elf.adoc#attributes
			// This section has 0 mem size because it is not loaded into memory.
			continue
		}
		if prog.Type != elf.PT_LOAD {
			if prog.Filesz != prog.Memsz {
				return nil, fmt.Errorf("program segment %d has different file size (%d) than mem size (%d): filling for non PT_LOAD segments is not supported", i, prog.Filesz, prog.Memsz)
			}
			continue
		}
		if prog.Filesz > prog.Memsz {
			return nil, fmt.Errorf("invalid PT_LOAD program segment %d, file size (%d) > mem size (%d)", i, prog.Filesz, prog.Memsz)
		}

		segment := func() io.Reader {
			r := io.Reader(io.NewSectionReader(prog, 0, int64(prog.Filesz)))
			if prog.Filesz < prog.Memsz {
				r = io.MultiReader(r, bytes.NewReader(make([]byte, prog.Memsz-prog.Filesz)))
			}
			return r
		}

		// initialized data is linked to run from RAM, but stored in ROM for the startup code to copy.
		// Load the image at both addresses, so programs run with or without that copy loop.
		if err := out.Bus.LoadRange(U32(prog.Paddr), segment()); err != nil {
			return nil, fmt.Errorf("failed to load program segment %d at %08x: %w", i, prog.Paddr, err)
		}
		if prog.Vaddr != prog.Paddr {
			if err := out.Bus.LoadRange(U32(prog.Vaddr), segment()); err != nil {
				return nil, fmt.Errorf("failed to load program segment %d at %08x: %w", i, prog.Vaddr, err)
			}
		}
	}
	return out, nil
}

// LoadROMImage creates a state with a raw little-endian image at the start of ROM.
func LoadROMImage(r io.Reader, cfg Config) (*VMState, error) {
	out, err := NewVMState(cfg)
	if err != nil {
		return nil, err
	}
	if err := out.Bus.ROM.SetRange(0, r); err != nil {
		return nil, fmt.Errorf("failed to load ROM image: %w", err)
	}
	return out, nil
}

// SortedSymbols are ELF symbols ordered by address.
type SortedSymbols []elf.Symbol

func Symbols(f *elf.File) (SortedSymbols, error) {
	symbols, err := f.Symbols()
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols data: %w", err)
	}
	// not every ELF has sorted symbols
	out := make(SortedSymbols, len(symbols))
	copy(out, symbols)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Value < out[j].Value
	})
	return out, nil
}
