package format

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := NewHeader(42, NewConfigMask(0, 3, 254))
	h.Checksum = 0xcafebabe
	h.PreFooterSize = 1 << 33

	b := h.ToBytes()
	if len(b) != HEADER_SIZE {
		t.Fatalf("header is %d bytes", len(b))
	}
	if !bytes.Equal(b[:4], []byte("VBFF")) || b[8] != 42 || b[12] != 0x09 || b[43] != 0x40 {
		t.Errorf("unexpected layout\n%s", spew.Sdump(b))
	}
	if b[CHECKSUM_OFFSET] != 0xbe || b[PRE_FOOTER_OFFSET+4] != 2 {
		t.Errorf("trailer fields misplaced\n%s", spew.Sdump(b))
	}

	back, err := ParseHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if back != h {
		t.Errorf("got %s\nwant %s", spew.Sdump(back), spew.Sdump(h))
	}

	zeroed := h.ChecksumBytes()
	if !bytes.Equal(zeroed[:CHECKSUM_OFFSET], b[:CHECKSUM_OFFSET]) ||
		!bytes.Equal(zeroed[CHECKSUM_OFFSET:], make([]byte, 12)) {
		t.Errorf("checksum view should zero the last 12 bytes\n%s", spew.Sdump(zeroed))
	}
}

func TestHeaderIgnoresBit255(t *testing.T) {
	h := NewHeader(1, ConfigMask{})
	h.ConfigMask[31] = 0xff
	b := h.ToBytes()
	if b[CONFIG_MASK_OFFSET+31] != 0x7f {
		t.Errorf("bit 255 was written: %x", b[CONFIG_MASK_OFFSET+31])
	}
	b[CONFIG_MASK_OFFSET+31] = 0xff
	back, _ := ParseHeader(b)
	if back.ConfigMask.Has(255) || back.ConfigMask[31] != 0x7f {
		t.Errorf("bit 255 was read back")
	}
}

func TestParseHeaderErrors(t *testing.T) {
	goodHeader := NewHeader(7, ConfigMask{})
	good := goodHeader.ToBytes()

	badMagic := append([]byte(nil), good...)
	copy(badMagic, "VBFX")
	badVersion := append([]byte(nil), good...)
	badVersion[4] = 1

	testCases := []struct {
		name     string
		data     []byte
		expected error
	}{
		{"short", good[:40], ErrBadFormat},
		{"magic", badMagic, ErrBadMagic},
		{"version", badVersion, ErrBadVersion},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHeader(tc.data)
			if !errors.Is(err, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, err)
			}
			if !IsFormatError(err) {
				t.Errorf("%v should be a format error", err)
			}
		})
	}
}

func TestDetectCompression(t *testing.T) {
	testCases := []struct {
		magic    []byte
		expected CompressionType
	}{
		{[]byte("VBFF"), COMPRESSION_NONE},
		{[]byte{0x1f, 0x8b, 8, 0}, COMPRESSION_GZIP},
		{[]byte("BZh9"), COMPRESSION_BZIP2},
		{[]byte{0x28, 0xb5, 0x2f, 0xfd}, COMPRESSION_ZSTD},
		{[]byte{0x28, 0xb5}, COMPRESSION_NONE},
		{nil, COMPRESSION_NONE},
	}
	for _, tc := range testCases {
		if got := DetectCompression(tc.magic); got != tc.expected {
			t.Errorf("%x: got %s, want %s", tc.magic, got, tc.expected)
		}
	}
}

func TestChecksumError(t *testing.T) {
	var err error = &ChecksumError{Expected: 1, Actual: 2}
	wrapped := errors.Wrap(err, "failed to verify")
	if !errors.Is(wrapped, ErrChecksumInvalid) {
		t.Error("ChecksumError should match ErrChecksumInvalid")
	}
	var ce *ChecksumError
	if !errors.As(wrapped, &ce) || ce.Actual != 2 {
		t.Error("ChecksumError should be recoverable with As")
	}
	if IsFormatError(wrapped) {
		t.Error("a checksum mismatch is not a format error")
	}
}
