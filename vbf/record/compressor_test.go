package record

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

// traceWithBits makes a trace whose range needs exactly the given width.
func traceWithBits(r *rand.Rand, bits, ns int) []byte {
	trace := make([]byte, ns)
	switch bits {
	case 0:
		c := byte(r.Intn(MAX_MIN + 1))
		for i := range trace {
			trace[i] = c
		}
	case BITS_RAW:
		for i := range trace {
			trace[i] = byte(r.Intn(256))
		}
		trace[0], trace[1] = 0, 255
	default:
		min := r.Intn(MAX_MIN + 1)
		top := 1<<bits - 1
		for i := range trace {
			trace[i] = byte(min + r.Intn(top+1))
		}
		trace[0], trace[1] = byte(min), byte(min+top)
	}
	return trace
}

func TestTraceRange(t *testing.T) {
	testCases := []struct {
		trace []byte
		min   uint8
		bits  int
	}{
		{[]byte{5, 5, 5, 5}, 5, 0},
		{[]byte{5, 6, 5, 6}, 5, 1},
		{[]byte{10, 12, 11, 9}, 9, 2},
		{[]byte{0, 7, 0, 0}, 0, 3},
		{[]byte{0, 8, 0, 0}, 0, 4},
		{[]byte{0, 16, 0, 0}, 0, BITS_RAW},
		// min is capped, so a flat trace above 20 still needs bits
		{[]byte{30, 30, 30, 30}, MAX_MIN, 4},
		{[]byte{200, 200, 200, 200}, MAX_MIN, BITS_RAW},
	}
	for _, tc := range testCases {
		min, bits := traceRange(tc.trace)
		if min != tc.min || bits != tc.bits {
			t.Errorf("traceRange(%v) = %d, %d; want %d, %d", tc.trace, min, bits, tc.min, tc.bits)
		}
	}
}

func roundTrip(t *testing.T, ns int, widths []int, r *rand.Rand) {
	t.Helper()
	compressor, err := NewCompressor(ns, len(widths))
	if err != nil {
		t.Fatal(err)
	}
	traces := make([][]byte, len(widths))
	wantBits := 0
	for i, bits := range widths {
		traces[i] = traceWithBits(r, bits, ns)
		if _, got := traceRange(traces[i]); got != bits {
			t.Fatalf("test trace %v has width %d, want %d", traces[i], got, bits)
		}
		if err = compressor.Add(traces[i], i%2 == 1); err != nil {
			t.Fatal(err)
		}
		wantBits += ChannelBits(bits, ns)
	}
	if compressor.Bits() != wantBits {
		t.Fatalf("compressed to %d bits, want %d", compressor.Bits(), wantBits)
	}
	stream := compressor.Bytes()
	if len(stream) != (wantBits+7)/8 {
		t.Fatalf("stream is %d bytes for %d bits", len(stream), wantBits)
	}

	// events pad the stream, so the decoder normally sees a few spare bytes
	padded := make([]byte, ioutil.AlignUp(len(stream), 4))
	copy(padded, stream)
	dc, err := NewDecompressor(ns, padded)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]byte, ns)
	for i := range traces {
		xtra, err := dc.Next(got)
		if err != nil {
			t.Fatalf("channel %d: %v", i, err)
		}
		if !bytes.Equal(got, traces[i]) || xtra != (i%2 == 1) {
			t.Fatalf("channel %d (width %d): got %v xtra=%v, want %v\n%s",
				i, widths[i], got, xtra, traces[i], spew.Sdump(stream))
		}
	}
	if dc.Consumed() != len(stream) {
		t.Errorf("decoder consumed %d bytes of %d", dc.Consumed(), len(stream))
	}
}

func TestCompressionRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, ns := range []int{4, 8, 12, 16, 20, 64} {
		for a := 0; a <= BITS_RAW; a++ {
			for b := 0; b <= BITS_RAW; b++ {
				widths := []int{a, b, (a + b) % 6, 1, b}
				t.Run(fmt.Sprintf("ns=%d/%v", ns, widths), func(t *testing.T) {
					roundTrip(t, ns, widths, r)
				})
			}
		}
	}
}

// Odd widths with a sample count that is not a multiple of 8 leave half a
// byte over, which the next header has to fill.
func TestCompressionHangingNibble(t *testing.T) {
	compressor, _ := NewCompressor(4, 2)
	compressor.Add([]byte{0, 1, 1, 0}, false)
	if len(compressor.Bytes()) != 2 || compressor.Bits() != 12 {
		t.Fatalf("first channel should leave a spare nibble: %v", compressor.Bytes())
	}
	compressor.Add([]byte{3, 3, 3, 3}, false)
	// header 3 is split around the spare nibble
	want := []byte{21, 0x06, 0x03}
	if !bytes.Equal(compressor.Bytes(), want) || compressor.Bits() != 20 {
		t.Errorf("got %v (%d bits), want %v", compressor.Bytes(), compressor.Bits(), want)
	}

	dc, _ := NewDecompressor(4, compressor.Bytes())
	got := make([]byte, 4)
	dc.Next(got)
	if !bytes.Equal(got, []byte{0, 1, 1, 0}) {
		t.Errorf("first channel came back as %v", got)
	}
	dc.Next(got)
	if !bytes.Equal(got, []byte{3, 3, 3, 3}) {
		t.Errorf("second channel came back as %v", got)
	}
}

func TestCompressionTruncated(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	compressor, _ := NewCompressor(8, 3)
	for _, bits := range []int{3, 2, BITS_RAW} {
		compressor.Add(traceWithBits(r, bits, 8), false)
	}
	stream := compressor.Bytes()

	for cut := 0; cut < len(stream); cut++ {
		dc, _ := NewDecompressor(8, stream[:cut])
		got := make([]byte, 8)
		var err error
		for i := 0; i < 3 && err == nil; i++ {
			_, err = dc.Next(got)
		}
		if !errors.Is(err, format.ErrBadFormat) {
			t.Errorf("stream cut at %d: expected ErrBadFormat, got %v", cut, err)
		}
		if dc.Consumed() > cut {
			t.Errorf("stream cut at %d: decoder went to %d", cut, dc.Consumed())
		}
	}
}

func TestCompressionSampleCount(t *testing.T) {
	if _, err := NewCompressor(6, 1); !errors.Is(err, format.ErrSizeInvalid) {
		t.Errorf("expected ErrSizeInvalid, got %v", err)
	}
	if _, err := NewDecompressor(6, nil); !errors.Is(err, format.ErrBadFormat) {
		t.Errorf("expected ErrBadFormat, got %v", err)
	}
	compressor, _ := NewCompressor(4, 1)
	if err := compressor.Add([]byte{1, 2}, false); !errors.Is(err, format.ErrSizeInvalid) {
		t.Errorf("short trace: expected ErrSizeInvalid, got %v", err)
	}
}

func TestChannelBits(t *testing.T) {
	testCases := []struct {
		bits, ns, want int
	}{
		{0, 16, 8},
		{1, 4, 12},
		{3, 12, 44},
		{4, 8, 40},
		{BITS_RAW, 4, 40},
	}
	for _, tc := range testCases {
		if got := ChannelBits(tc.bits, tc.ns); got != tc.want {
			t.Errorf("ChannelBits(%d, %d) = %d, want %d", tc.bits, tc.ns, got, tc.want)
		}
	}
}
