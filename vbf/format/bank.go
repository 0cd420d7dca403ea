package format

import (
	"bytes"
	"io"

	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

// BankName is the 8 raw bytes that key a bank inside a packet. It is not a
// C string: NUL bytes are significant.
type BankName [BANK_NAME_SIZE]byte

// NewBankName pads short names with NUL and truncates long ones.
func NewBankName(s string) BankName {
	var n BankName
	copy(n[:], s)
	return n
}

func (n BankName) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}

// Bank is one typed block in a packet.
type Bank interface {
	Version() uint32
	// Size is the length of the body, not counting the 16 byte bank header.
	Size() uint32
	// Encode writes exactly Size() bytes.
	Encode(w io.Writer) error
}

// BankContext is what a Builder knows about the bank it is decoding.
type BankContext struct {
	Name        BankName
	Version     uint32
	RunNumber   uint32
	EventNumber int64
}

// Builder turns a bank body into a Bank. body is only valid for the call.
type Builder interface {
	Build(ctx BankContext, body []byte) (Bank, error)
}

type BuilderFunc func(ctx BankContext, body []byte) (Bank, error)

func (f BuilderFunc) Build(ctx BankContext, body []byte) (Bank, error) {
	return f(ctx, body)
}

func writeBankHeader(w io.Writer, name BankName, b Bank) error {
	ww := ioutil.NewWordWriter(w)
	ww.Write(name[:])
	ww.Uint32(b.Version())
	ww.Uint32(BANK_HEADER_SIZE + b.Size())
	return ww.Err()
}

// EncodeBank writes the header and body of one bank block and checks the
// bank wrote as much as it promised.
func EncodeBank(w io.Writer, name BankName, b Bank) error {
	if err := writeBankHeader(w, name, b); err != nil {
		return errors.Wrapf(err, "failed to write header of bank %s", name)
	}
	counter := ioutil.NewBlockWriter(w, 1)
	if err := b.Encode(counter); err != nil {
		return errors.Wrapf(err, "failed to encode bank %s", name)
	}
	if counter.Written() != uint64(b.Size()) {
		return errors.Wrapf(ErrSizeInvalid, "bank %s wrote %d bytes but claims %d", name, counter.Written(), b.Size())
	}
	return nil
}

// FoldBank folds a whole bank block, header included, into a running Adler-32.
func FoldBank(adler uint32, name BankName, b Bank) (uint32, error) {
	hasher := ioutil.NewAdler(adler)
	if err := EncodeBank(hasher, name, b); err != nil {
		return adler, err
	}
	return hasher.Sum32(), nil
}
