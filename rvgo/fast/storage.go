package fast

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math/bits"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// Pages are 1 KiB. A storage region spans at most the 29 bit offset range of a bus region.
const (
	PageAddrSize = 10
	PageKeySize  = riscv.RegionShift - PageAddrSize
	PageSize     = 1 << PageAddrSize
	PageAddrMask = PageSize - 1
	MaxPageCount = 1 << PageKeySize
	PageKeyMask  = MaxPageCount - 1
	// ProofLen is the number of 32 byte words in a proof: the leaf, and one sibling per tree level
	ProofLen = riscv.RegionShift - 5 + 1
)

func HashPair(left, right [32]byte) [32]byte {
	return crypto.Keccak256Hash(left[:], right[:])
}

var zeroHashes = func() [256][32]byte {
	// empty parts of the tree are all zero. Precompute the hash of each full-zero range sub-tree level.
	var out [256][32]byte
	for i := 1; i < 256; i++ {
		out[i] = HashPair(out[i-1], out[i-1])
	}
	return out
}()

// Storage is a word-addressed backing store of a bus region, allocated in pages on first write.
// Offsets at or beyond Size read as zero and ignore writes.
type Storage struct {
	size U32

	pages map[U32]*CachedPage

	// generalized index -> merkle root of the subtree above the pages, nil if invalidated.
	// Missing entries are fully zero subtrees.
	nodes map[uint64]*[32]byte

	// we often fetch from one page, and load/store with another page.
	// this prevents map lookups each access
	lastPageKeys [2]U32
	lastPage     [2]*CachedPage
}

func NewStorage(size U32) *Storage {
	return &Storage{
		size:         size,
		pages:        make(map[U32]*CachedPage),
		nodes:        make(map[uint64]*[32]byte),
		lastPageKeys: [2]U32{^U32(0), ^U32(0)}, // default to invalid keys, to not match any pages
	}
}

func (m *Storage) Size() U32 {
	return m.size
}

func (m *Storage) PageCount() int {
	return len(m.pages)
}

func (m *Storage) pageLookup(pageIndex U32) (*CachedPage, bool) {
	// hit caches
	if pageIndex == m.lastPageKeys[0] {
		return m.lastPage[0], true
	}
	if pageIndex == m.lastPageKeys[1] {
		return m.lastPage[1], true
	}
	p, ok := m.pages[pageIndex]

	// only cache existing pages.
	if ok {
		m.lastPageKeys[1] = m.lastPageKeys[0]
		m.lastPage[1] = m.lastPage[0]
		m.lastPageKeys[0] = pageIndex
		m.lastPage[0] = p
	}

	return p, ok
}

func (m *Storage) AllocPage(pageIndex U32) *CachedPage {
	p := &CachedPage{Data: new(Page)}
	m.pages[pageIndex] = p
	// make nodes to root
	k := (uint64(1) << PageKeySize) | uint64(pageIndex)
	for k > 0 {
		m.nodes[k] = nil
		k >>= 1
	}
	return p
}

// Invalidate marks the branch of the given offset as changed.
func (m *Storage) Invalidate(offset U32) {
	if p, ok := m.pageLookup(offset >> PageAddrSize); ok {
		p.Invalidate(offset & PageAddrMask)
	}
	k := (uint64(1) << PageKeySize) | uint64(offset>>PageAddrSize)
	for k > 0 {
		m.nodes[k] = nil
		k >>= 1
	}
}

// ReadWord reads the little-endian word at a word-aligned offset.
func (m *Storage) ReadWord(offset U32) U32 {
	if offset >= m.size {
		return 0
	}
	p, ok := m.pageLookup(offset >> PageAddrSize)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint32(p.Data[offset&PageAddrMask:])
}

// WriteWord writes the little-endian word at a word-aligned offset.
func (m *Storage) WriteWord(offset U32, v U32) {
	if offset >= m.size {
		return
	}
	pageIndex := offset >> PageAddrSize
	p, ok := m.pageLookup(pageIndex)
	if !ok {
		p = m.AllocPage(pageIndex)
	} else {
		m.Invalidate(offset) // invalidate this branch of memory, now that the value changed
	}
	binary.LittleEndian.PutUint32(p.Data[offset&PageAddrMask:], v)
}

// SetRange copies all of r into storage, starting at the given offset.
func (m *Storage) SetRange(offset U32, r io.Reader) error {
	for {
		if offset >= m.size {
			// anything left to read is out of bounds
			var b [1]byte
			if n, _ := io.ReadFull(r, b[:]); n > 0 {
				return fmt.Errorf("data exceeds storage size %d at offset %08x", m.size, offset)
			}
			return nil
		}
		pageIndex := offset >> PageAddrSize
		pageAddr := offset & PageAddrMask
		p, ok := m.pageLookup(pageIndex)
		if !ok {
			p = m.AllocPage(pageIndex)
		}
		end := U32(PageSize)
		if rem := m.size - offset; rem < end-pageAddr {
			end = pageAddr + rem
		}
		n, err := r.Read(p.Data[pageAddr:end])
		if n > 0 {
			p.InvalidateFull()
			m.Invalidate(offset)
		}
		offset += U32(n)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (m *Storage) merkleizeSubtree(gindex uint64) [32]byte {
	l := uint64(bits.Len64(gindex))
	if l > PageKeySize+1 {
		panic("gindex too deep")
	}
	if l == PageKeySize+1 {
		if p, ok := m.pages[U32(gindex&PageKeyMask)]; ok {
			return p.MerkleRoot()
		}
		return zeroHashes[PageAddrSize-5]
	}
	n, ok := m.nodes[gindex]
	if !ok {
		// height of the subtree above the 32 byte leaves
		return zeroHashes[PageKeySize+1-l+PageAddrSize-5]
	}
	if n != nil {
		return *n
	}
	left := m.merkleizeSubtree(gindex << 1)
	right := m.merkleizeSubtree((gindex << 1) | 1)
	r := HashPair(left, right)
	m.nodes[gindex] = &r
	return r
}

func (m *Storage) MerkleRoot() [32]byte {
	return m.merkleizeSubtree(1)
}

// MerkleProof returns the 32 byte leaf containing offset, followed by its siblings, bottom-up.
func (m *Storage) MerkleProof(offset U32) (out [ProofLen * 32]byte) {
	pageIndex := offset >> PageAddrSize
	pageAddr := offset & PageAddrMask
	var proof [][32]byte
	if p, ok := m.pageLookup(pageIndex); ok {
		var leaf [32]byte
		copy(leaf[:], p.Data[pageAddr&^31:])
		proof = append(proof, leaf)
		proof = append(proof, p.siblings(pageAddr)...)
	} else {
		proof = append(proof, [32]byte{}) // the leaf itself
		for i := 0; i < PageAddrSize-5; i++ {
			proof = append(proof, zeroHashes[i])
		}
	}
	for k := (uint64(1) << PageKeySize) | uint64(pageIndex); k > 1; k >>= 1 {
		proof = append(proof, m.merkleizeSubtree(k^1))
	}
	if len(proof) != ProofLen {
		panic(fmt.Errorf("unexpected proof length %d", len(proof)))
	}
	for i, node := range proof {
		copy(out[i*32:(i+1)*32], node[:])
	}
	return
}

// Usage reports the allocated size in human-readable units.
func (m *Storage) Usage() string {
	total := uint64(len(m.pages)) * PageSize
	const unit = 1024
	if total < unit {
		return fmt.Sprintf("%d B", total)
	}
	div, exp := uint64(unit), 0
	for n := total / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	// KiB, MiB, ...
	return fmt.Sprintf("%.1f %ciB", float64(total)/float64(div), "KMGTPE"[exp])
}

type pageEntry struct {
	Index U32   `json:"index"`
	Data  *Page `json:"data"`
}

type storageJSON struct {
	Size  U32         `json:"size"`
	Pages []pageEntry `json:"pages"`
}

func (m *Storage) MarshalJSON() ([]byte, error) {
	pages := make([]pageEntry, 0, len(m.pages))
	for k, p := range m.pages {
		pages = append(pages, pageEntry{
			Index: k,
			Data:  p.Data,
		})
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].Index < pages[j].Index
	})
	return json.Marshal(storageJSON{Size: m.size, Pages: pages})
}

func (m *Storage) UnmarshalJSON(data []byte) error {
	var in storageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = *NewStorage(in.Size)
	for i, p := range in.Pages {
		if _, ok := m.pages[p.Index]; ok {
			return fmt.Errorf("cannot load duplicate page, entry %d, page index %d", i, p.Index)
		}
		if p.Index >= MaxPageCount || p.Data == nil {
			return fmt.Errorf("invalid page entry %d, page index %d", i, p.Index)
		}
		m.AllocPage(p.Index).Data = p.Data
	}
	return nil
}
