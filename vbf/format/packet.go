package format

import (
	"bytes"
	"io"
	"sort"

	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

// Packet is the set of banks recorded for one array event, keyed by name.
type Packet struct {
	banks map[BankName]Bank
	names []BankName
}

func NewPacket() *Packet {
	return &Packet{banks: make(map[BankName]Bank)}
}

func (p *Packet) Put(name BankName, b Bank) {
	if _, ok := p.banks[name]; !ok {
		i := sort.Search(len(p.names), func(i int) bool {
			return bytes.Compare(p.names[i][:], name[:]) >= 0
		})
		p.names = append(p.names, BankName{})
		copy(p.names[i+1:], p.names[i:])
		p.names[i] = name
	}
	p.banks[name] = b
}

func (p *Packet) Get(name BankName) (Bank, bool) {
	b, ok := p.banks[name]
	return b, ok
}

func (p *Packet) Has(name BankName) bool {
	_, ok := p.banks[name]
	return ok
}

func (p *Packet) Remove(name BankName) {
	if _, ok := p.banks[name]; !ok {
		return
	}
	delete(p.banks, name)
	for i, n := range p.names {
		if n == name {
			p.names = append(p.names[:i], p.names[i+1:]...)
			break
		}
	}
}

// Names are in byte order, which is also the order banks are written in.
func (p *Packet) Names() []BankName {
	return append([]BankName(nil), p.names...)
}

func (p *Packet) Len() int {
	return len(p.names)
}

// Size is the packet body length: every bank header plus every bank body.
func (p *Packet) Size() uint64 {
	var size uint64
	for _, name := range p.names {
		size += BANK_HEADER_SIZE + uint64(p.banks[name].Size())
	}
	return size
}

// Encode writes the bank blocks. The "VPCK" frame is the writer's business.
func (p *Packet) Encode(w io.Writer) error {
	for _, name := range p.names {
		if err := EncodeBank(w, name, p.banks[name]); err != nil {
			return err
		}
	}
	return nil
}

// ParsePacket decodes a packet body. Banks the registry has no builder for
// are skipped.
func ParsePacket(body []byte, reg *Registry, run uint32, event int64) (*Packet, error) {
	p := NewPacket()
	seen := make(map[BankName]bool)
	wr := ioutil.NewWordReader(body)
	for wr.Remaining() > 0 {
		if wr.Remaining() < BANK_HEADER_SIZE {
			return nil, errors.Wrapf(ErrBadFormat, "%d stray bytes at end of packet", wr.Remaining())
		}
		var name BankName
		copy(name[:], wr.Bytes(BANK_NAME_SIZE))
		version := wr.Uint32()
		length := wr.Uint32()
		if length < BANK_HEADER_SIZE || uint64(length-BANK_HEADER_SIZE) > uint64(wr.Remaining()) {
			return nil, errors.Wrapf(ErrBadFormat, "bank %s claims %d bytes", name, length)
		}
		bankBody := wr.Bytes(int(length - BANK_HEADER_SIZE))
		if seen[name] {
			return nil, errors.Wrapf(ErrDuplicateBankName, "bank %s", name)
		}
		seen[name] = true

		builder := reg.Builder(name)
		if builder == nil {
			continue
		}
		ctx := BankContext{
			Name:        name,
			Version:     version,
			RunNumber:   run,
			EventNumber: event,
		}
		bank, err := builder.Build(ctx, bankBody)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode bank %s", name)
		}
		p.Put(name, bank)
	}
	return p, nil
}
