package reader

import (
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
)

// packetIndex is the footer's offset table. mapping is whatever has to be
// released on close; entries is the table itself.
type packetIndex struct {
	mapping []byte
	entries []byte
	count   uint32
}

func (ix *packetIndex) offset(i uint32) uint64 {
	return ioutil.WireOrder.Uint64(ix.entries[uint64(i)*format.FOOTER_ENTRY_SIZE:])
}

func (ix *packetIndex) close() error {
	if ix.mapping == nil {
		return nil
	}
	err := unmapRegion(ix.mapping)
	ix.mapping, ix.entries = nil, nil
	return err
}
