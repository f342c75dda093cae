package cmd

import (
	"debug/elf"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

type Symbol struct {
	Name  string   `json:"name"`
	Start fast.U32 `json:"start"`
	Size  fast.U32 `json:"size"`
}

// Metadata is the symbol table of the loaded program, for diagnostics.
type Metadata struct {
	Symbols []Symbol `json:"symbols"`
}

func MakeMetadata(f *elf.File) (*Metadata, error) {
	syms, err := fast.Symbols(f)
	if errors.Is(err, elf.ErrNoSymbols) {
		return &Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	out := &Metadata{Symbols: make([]Symbol, 0, len(syms))}
	for _, s := range syms {
		if elf.ST_TYPE(s.Info) != elf.STT_FUNC && elf.ST_TYPE(s.Info) != elf.STT_OBJECT {
			continue
		}
		out.Symbols = append(out.Symbols, Symbol{Name: s.Name, Start: fast.U32(s.Value), Size: fast.U32(s.Size)})
	}
	return out, nil
}

// LookupSymbol returns the name of the symbol that contains addr, or "!unknown".
func (m *Metadata) LookupSymbol(addr fast.U32) string {
	if len(m.Symbols) == 0 {
		return "!unknown"
	}
	// find first symbol with higher start. Or n if no such symbol exists
	i := sort.Search(len(m.Symbols), func(i int) bool {
		return m.Symbols[i].Start > addr
	})
	if i == 0 {
		return "!start"
	}
	out := &m.Symbols[i-1]
	if out.Start+out.Size <= addr && out.Size != 0 {
		return "!gap"
	}
	return out.Name
}
