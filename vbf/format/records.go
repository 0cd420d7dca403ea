package format

import (
	"io"
)

// RawBank keeps a bank's bytes as they were on disk. The fallback builder
// makes these for names nobody registered, which lets tools list or copy
// banks they cannot decode.
type RawBank struct {
	Name    BankName
	BankVer uint32
	Body    []byte
}

func (b *RawBank) Version() uint32 {
	return b.BankVer
}

func (b *RawBank) Size() uint32 {
	return uint32(len(b.Body))
}

func (b *RawBank) Encode(w io.Writer) error {
	_, err := w.Write(b.Body)
	return err
}

func buildRaw(ctx BankContext, body []byte) (Bank, error) {
	return &RawBank{
		Name:    ctx.Name,
		BankVer: ctx.Version,
		Body:    append([]byte(nil), body...),
	}, nil
}

// RawBuilder copies any bank body into a RawBank.
var RawBuilder Builder = BuilderFunc(buildRaw)
