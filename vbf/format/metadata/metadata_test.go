package metadata

import (
	"bytes"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fxamacker/cbor/v2"
)

// This test is here to make sure I understand the behavior of pointers in cbor's interpretation.
func TestCommon(t *testing.T) {

	note := new(Annotation)
	note.Operator = MakePointer("shift")

	buff := new(bytes.Buffer)

	enc := cbor.NewEncoder(buff)
	if nil != enc.Encode(note) {
		t.Fatal("Couldn't encode!")
	}
	dec := cbor.NewDecoder(buff)

	newNote := new(Annotation)
	if nil != dec.Decode(newNote) {
		t.Fatal("Couldn't decode!")
	}

	if *(newNote.Operator) != "shift" {
		t.Fatal("Didn't get the same value in that I got out")
	}
	if newNote.Operator == note.Operator {
		t.Fatal("Shouldn't be the same address...")
	}
	if newNote.Comment != nil {
		t.Fatal("omitted fields should stay nil")
	}
}

func TestAnnotationBinary(t *testing.T) {
	when := time.Date(2005, 8, 1, 4, 30, 0, 0, time.UTC)
	note := Annotation{
		CreatedTime: &when,
		Comment:     MakePointer("clouds from the west after 05:00"),
		Tags:        MakePointer([]string{"moonlight", "t3-off"}),
		Weather: &Weather{
			Code:        MakePointer("B"),
			Temperature: MakePointer[float32](11.5),
		},
		Extra: map[string]string{"b": "2", "a": "1"},
	}

	first, err := note.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	second, _ := note.MarshalBinary()
	if !bytes.Equal(first, second) {
		t.Error("encoding should be deterministic")
	}

	var back Annotation
	if err = back.UnmarshalBinary(first); err != nil {
		t.Fatal(err)
	}
	if !back.CreatedTime.Equal(when) || *back.Comment != *note.Comment ||
		len(*back.Tags) != 2 || *back.Weather.Temperature != 11.5 || back.Extra["a"] != "1" {
		t.Errorf("round trip lost data:\n%s", spew.Sdump(back))
	}
	if back.Weather.Humidity != nil {
		t.Error("unset weather field came back")
	}

	if err = back.UnmarshalBinary([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage should not decode")
	}
}
