package record

import (
	"testing"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/format/metadata"
	"github.com/pkg/errors"
)

func TestAnnotationBank(t *testing.T) {
	note := &AnnotationBank{Annotation: metadata.NewAnnotation("clouds after 03:00")}
	note.Operator = metadata.MakePointer("shift crew")
	note.Weather = &metadata.Weather{Code: metadata.MakePointer("B"), Temperature: metadata.MakePointer[float32](4.5)}
	raw := packetWith(t, ANNOTATION_BANK, note)

	p, err := format.ParsePacket(raw, DefaultRegistry(), 42, 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Has(ANNOTATION_BANK) {
		t.Error("the default registry should not know annotations")
	}

	reg := DefaultRegistry()
	reg.Register(ANNOTATION_BANK, AnnotationBuilder)
	p, err = format.ParsePacket(raw, reg, 42, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := p.Get(ANNOTATION_BANK)
	if !ok {
		t.Fatal("annotation missing")
	}
	back := b.(*AnnotationBank)
	if *back.Comment != "clouds after 03:00" || *back.Operator != "shift crew" || *back.Weather.Temperature != 4.5 {
		t.Errorf("got %+v", back.Annotation)
	}
	if !back.CreatedTime.Equal(*note.CreatedTime) {
		t.Errorf("created %v, want %v", back.CreatedTime, note.CreatedTime)
	}
	if DefaultRegistry().Has(ANNOTATION_BANK) {
		t.Error("registering on a copy leaked into the default registry")
	}
}

func TestAnnotationBadBody(t *testing.T) {
	_, err := AnnotationBuilder.Build(format.BankContext{Name: ANNOTATION_BANK}, []byte{0xff, 0x00})
	if !errors.Is(err, format.ErrBadFormat) {
		t.Errorf("expected ErrBadFormat, got %v", err)
	}
	_, err = AnnotationBuilder.Build(format.BankContext{Version: 1}, nil)
	if !errors.Is(err, format.ErrBankVersion) {
		t.Errorf("expected ErrBankVersion, got %v", err)
	}
}
