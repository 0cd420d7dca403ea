package format

import (
	"bytes"
	"io"

	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

/*

A VBF file is a 56 byte header, a run of packets and an optional footer.

	0   "VBFF"
	4   u32 version (always 0)
	8   u32 run number
	12  32 byte config mask
	44  u32 Adler-32 of header and body
	48  u64 offset of the footer (0 until finished)

Every packet is "VPCK", a u32 body length and the bank blocks. The footer
is a u32 packet count followed by one u64 file offset per packet.

*/

const (
	VBF_MAGIC   = "VBFF"
	VBF_VERSION = 0

	HEADER_SIZE        = 56
	CONFIG_MASK_OFFSET = 12
	CONFIG_MASK_SIZE   = 32
	CHECKSUM_OFFSET    = 44
	PRE_FOOTER_OFFSET  = 48

	PACKET_MAGIC       = "VPCK"
	PACKET_HEADER_SIZE = 8

	BANK_NAME_SIZE   = 8
	BANK_HEADER_SIZE = 16

	FOOTER_COUNT_SIZE = 4
	FOOTER_ENTRY_SIZE = 8

	// Node numbers 0..254 are telescopes; 255 belongs to the array trigger.
	ARRAY_TRIGGER_NODE = 255
	MAX_NODES          = 255
)

var (
	VBF_MAGIC_BYTES    = []byte(VBF_MAGIC)
	PACKET_MAGIC_BYTES = []byte(PACKET_MAGIC)
)

type Header struct {
	Version       uint32
	RunNumber     uint32
	ConfigMask    ConfigMask
	Checksum      uint32
	PreFooterSize uint64
}

func NewHeader(run uint32, mask ConfigMask) Header {
	return Header{
		Version:    VBF_VERSION,
		RunNumber:  run,
		ConfigMask: mask,
	}
}

func (h *Header) ToBytes() []byte {
	b := new(bytes.Buffer)
	h.WriteHeader(b)
	return b.Bytes()
}

// ChecksumBytes is the header as the checksum sees it: checksum and
// pre-footer fields zeroed.
func (h *Header) ChecksumBytes() []byte {
	c := *h
	c.Checksum = 0
	c.PreFooterSize = 0
	return c.ToBytes()
}

func (h *Header) WriteHeader(w io.Writer) error {
	ww := ioutil.NewWordWriter(w)
	ww.Write(VBF_MAGIC_BYTES)
	ww.Uint32(h.Version)
	ww.Uint32(h.RunNumber)
	mask := h.ConfigMask
	mask.Clear(ARRAY_TRIGGER_NODE)
	ww.Write(mask[:])
	ww.Uint32(h.Checksum)
	ww.Uint64(h.PreFooterSize)
	if err := ww.Err(); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	return nil
}

// ParseHeader validates the magic and version. It does not look at the
// pre-footer size; what that means depends on the file length.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HEADER_SIZE {
		return h, errors.Wrapf(ErrBadFormat, "header is %d bytes", len(b))
	}
	if !bytes.Equal(b[:4], VBF_MAGIC_BYTES) {
		return h, errors.Wrapf(ErrBadMagic, "found %q", b[:4])
	}
	wr := ioutil.NewWordReader(b[4:HEADER_SIZE])
	h.Version = wr.Uint32()
	if h.Version != VBF_VERSION {
		return h, errors.Wrapf(ErrBadVersion, "version %d", h.Version)
	}
	h.RunNumber = wr.Uint32()
	copy(h.ConfigMask[:], wr.Bytes(CONFIG_MASK_SIZE))
	h.ConfigMask.Clear(ARRAY_TRIGGER_NODE)
	h.Checksum = wr.Uint32()
	h.PreFooterSize = wr.Uint64()
	return h, nil
}

type CompressionType uint8

const (
	COMPRESSION_NONE CompressionType = iota
	COMPRESSION_GZIP
	COMPRESSION_BZIP2
	COMPRESSION_ZSTD
	COMPRESSION_BROTLI
)

func (c CompressionType) String() string {
	switch c {
	case COMPRESSION_NONE:
		return "none"
	case COMPRESSION_GZIP:
		return "gzip"
	case COMPRESSION_BZIP2:
		return "bzip2"
	case COMPRESSION_ZSTD:
		return "zstd"
	case COMPRESSION_BROTLI:
		return "brotli"
	}
	return "unknown"
}

// DetectCompression looks at the first bytes of a file. Brotli has no magic
// and is never detected.
func DetectCompression(magic []byte) CompressionType {
	switch {
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		return COMPRESSION_GZIP
	case len(magic) >= 2 && magic[0] == 'B' && magic[1] == 'Z':
		return COMPRESSION_BZIP2
	case len(magic) >= 4 && bytes.Equal(magic[:4], []byte{0x28, 0xb5, 0x2f, 0xfd}):
		return COMPRESSION_ZSTD
	}
	return COMPRESSION_NONE
}
