package record

import (
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/format/metadata"
	"github.com/pkg/errors"
)

const ANNOTATION_VERSION = 0

// AnnotationBank carries a CBOR encoded metadata.Annotation. It is not in
// the default registry; register AnnotationBuilder to read it back.
type AnnotationBank struct {
	metadata.Annotation
}

func (ab *AnnotationBank) Version() uint32 {
	return ANNOTATION_VERSION
}

// The encoding is canonical, so Size and Encode always agree.
func (ab *AnnotationBank) Size() uint32 {
	b, err := ab.MarshalBinary()
	if err != nil {
		return 0
	}
	return uint32(len(b))
}

func (ab *AnnotationBank) Encode(w io.Writer) error {
	b, err := ab.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func buildAnnotation(ctx format.BankContext, body []byte) (format.Bank, error) {
	if ctx.Version != ANNOTATION_VERSION {
		return nil, errors.Wrapf(format.ErrBankVersion, "annotation version %d", ctx.Version)
	}
	ab := new(AnnotationBank)
	if err := ab.UnmarshalBinary(body); err != nil {
		return nil, errors.Wrap(format.ErrBadFormat, err.Error())
	}
	return ab, nil
}

var AnnotationBuilder format.Builder = format.BuilderFunc(buildAnnotation)
