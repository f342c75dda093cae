package fast

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type Page [PageSize]byte

func (p *Page) MarshalText() ([]byte, error) {
	return hexutil.Bytes(p[:]).MarshalText()
}

func (p *Page) UnmarshalText(dat []byte) error {
	var b hexutil.Bytes
	if err := b.UnmarshalText(dat); err != nil {
		return err
	}
	if len(b) != PageSize {
		return fmt.Errorf("expected %d bytes of page data, got %d", PageSize, len(b))
	}
	copy(p[:], b)
	return nil
}

// CachedPage caches the merkle nodes of a single page.
// Cache is indexed by generalized index within the page subtree, Ok marks valid entries.
type CachedPage struct {
	Data  *Page
	Cache [PageSize / 32][32]byte
	Ok    [PageSize / 32]bool
}

func (p *CachedPage) Invalidate(pageAddr U32) {
	if pageAddr >= PageSize {
		panic("invalid page addr")
	}
	k := uint64(1<<PageAddrSize) | uint64(pageAddr)
	// first cache layer caches nodes that have two 32 byte leaf nodes.
	k >>= 5 + 1
	for k > 0 {
		p.Ok[k] = false
		k >>= 1
	}
}

func (p *CachedPage) InvalidateFull() {
	p.Ok = [PageSize / 32]bool{} // reset everything to false
}

func (p *CachedPage) MerkleRoot() [32]byte {
	// hash the bottom layer
	for i := uint64(0); i < PageSize; i += 64 {
		j := PageSize/32/2 + i/64
		if p.Ok[j] {
			continue
		}
		p.Cache[j] = crypto.Keccak256Hash(p.Data[i : i+64])
		p.Ok[j] = true
	}
	// hash the cache layers
	for i := PageSize/32 - 2; i > 0; i -= 2 {
		j := i >> 1
		if p.Ok[j] {
			continue
		}
		p.Cache[j] = HashPair(p.Cache[i], p.Cache[i+1])
		p.Ok[j] = true
	}
	return p.Cache[1]
}

// siblings returns the proof of the 32 byte leaf at pageAddr within the page, bottom-up.
func (p *CachedPage) siblings(pageAddr U32) (out [][32]byte) {
	p.MerkleRoot()
	leaf := uint64(pageAddr >> 5)
	var sib [32]byte
	copy(sib[:], p.Data[(leaf^1)<<5:])
	out = append(out, sib)
	for j := (uint64(1<<(PageAddrSize-5)) | leaf) >> 1; j > 1; j >>= 1 {
		out = append(out, p.Cache[j^1])
	}
	return out
}
