package reader

import (
	"bytes"
	"io"
	"os"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/indrora/vbf/vbf/record"
	"github.com/pkg/errors"
)

const DEFAULT_RING_SIZE = 1 << 16

type options struct {
	wantIndex   bool
	readOnly    bool
	registry    *format.Registry
	compression *format.CompressionType
	ringSize    int
	ringLimit   int
}

type Option func(*options)

// WithIndex makes Open fail with ErrNoIndex when the file has no footer.
func WithIndex(want bool) Option {
	return func(o *options) { o.wantIndex = want }
}

// ReadOnly is the default. Compressed streams can only be opened read-only.
func ReadOnly(readOnly bool) Option {
	return func(o *options) { o.readOnly = readOnly }
}

func WithRegistry(reg *format.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithCompression skips magic detection. Brotli streams need it.
func WithCompression(c format.CompressionType) Option {
	return func(o *options) { o.compression = &c }
}

// WithRingSize sets the starting ring size for compressed streams.
func WithRingSize(n int) Option {
	return func(o *options) { o.ringSize = n }
}

// WithRingLimit caps how large the stream ring may grow to fit one packet.
// The default is ioutil.DEFAULT_RING_LIMIT.
func WithRingLimit(n int) Option {
	return func(o *options) { o.ringLimit = n }
}

// Reader reads packets out of a VBF file. A native file can be read in any
// order once its index is mapped; without an index, and for compressed
// streams, packets are read in increasing order only.
type Reader struct {
	path        string
	file        *os.File
	opts        options
	header      format.Header
	compression format.CompressionType

	preFooter uint64
	index     *packetIndex

	// next packet to hand out and, for native files, where it starts
	packetIndex  uint32
	packetOffset uint64

	stream *packetStream
}

func Open(path string, opts ...Option) (*Reader, error) {
	o := options{
		readOnly: true,
		ringSize: DEFAULT_RING_SIZE,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = record.DefaultRegistry()
	}

	flag := os.O_RDONLY
	if !o.readOnly {
		flag = os.O_RDWR
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	r := &Reader{
		path: path,
		file: file,
		opts: o,
	}
	if err = r.init(); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) init() error {
	if r.opts.compression != nil {
		r.compression = *r.opts.compression
	} else {
		magic := make([]byte, 4)
		n, err := r.file.ReadAt(magic, 0)
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "failed to read magic")
		}
		r.compression = format.DetectCompression(magic[:n])
	}

	if r.compression != format.COMPRESSION_NONE {
		if !r.opts.readOnly {
			return errors.Wrapf(format.ErrStreamed, "%s stream must be opened read-only", r.compression)
		}
		return r.openStream()
	}

	raw := make([]byte, format.HEADER_SIZE)
	if _, err := r.file.ReadAt(raw, 0); err != nil {
		if err == io.EOF {
			return errors.Wrap(format.ErrBadFormat, "file is shorter than a header")
		}
		return errors.Wrap(err, "failed to read header")
	}
	header, err := format.ParseHeader(raw)
	if err != nil {
		return err
	}
	r.header = header

	size, err := r.statSize()
	if err != nil {
		return err
	}
	switch pre := header.PreFooterSize; {
	case pre == 0 || pre > size:
		r.preFooter = size
	case pre < format.HEADER_SIZE:
		return errors.Wrapf(format.ErrBadFormat, "pre-footer size %d is inside the header", pre)
	default:
		r.preFooter = pre
	}
	r.packetOffset = format.HEADER_SIZE

	if r.opts.wantIndex {
		ok, err := r.MapIndex()
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(format.ErrNoIndex, "%s has no footer", r.path)
		}
	}
	return nil
}

func (r *Reader) openStream() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "failed to rewind stream")
	}
	src, err := newDecompressor(r.file, r.compression)
	if err != nil {
		return err
	}
	stream, err := newPacketStream(src, r.opts.ringSize, r.opts.ringLimit, r.opts.registry)
	if err != nil {
		src.Close()
		return err
	}
	r.stream = stream
	r.header = stream.header
	r.packetIndex = 0
	return nil
}

func (r *Reader) statSize() (uint64, error) {
	info, err := r.file.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "failed to stat file")
	}
	return uint64(info.Size()), nil
}

// Registry is the codec table this reader decodes banks with. Callers may
// register their own kinds on it.
func (r *Reader) Registry() *format.Registry {
	return r.opts.registry
}

func (r *Reader) RunNumber() uint32 {
	return r.header.RunNumber
}

func (r *Reader) ConfigMask() format.ConfigMask {
	return r.header.ConfigMask
}

func (r *Reader) IsStreamed() bool {
	return r.stream != nil
}

func (r *Reader) Compression() format.CompressionType {
	return r.compression
}

// MapIndex maps the footer. It returns false when there is no footer or
// when the footer is cut short.
func (r *Reader) MapIndex() (bool, error) {
	if r.IsStreamed() {
		return false, format.ErrStreamed
	}
	if err := r.unmapIndex(); err != nil {
		return false, err
	}
	size, err := r.statSize()
	if err != nil {
		return false, err
	}
	if size < r.preFooter+format.FOOTER_COUNT_SIZE {
		return false, nil
	}
	var count [format.FOOTER_COUNT_SIZE]byte
	if _, err = r.file.ReadAt(count[:], int64(r.preFooter)); err != nil {
		return false, errors.Wrap(err, "failed to read packet count")
	}
	n := uint64(ioutil.WireOrder.Uint32(count[:]))
	if r.preFooter+format.FOOTER_COUNT_SIZE+n*format.FOOTER_ENTRY_SIZE > size {
		return false, nil
	}
	index, err := mapIndex(r.file, int64(r.preFooter)+format.FOOTER_COUNT_SIZE, uint32(n))
	if err != nil {
		return false, err
	}
	r.index = index
	return true, nil
}

func (r *Reader) unmapIndex() error {
	if r.index == nil {
		return nil
	}
	err := r.index.close()
	r.index = nil
	return err
}

func (r *Reader) HasIndex() bool {
	return r.index != nil
}

func (r *Reader) NumPackets() (uint32, error) {
	if r.index == nil {
		return 0, format.ErrNoIndex
	}
	return r.index.count, nil
}

func (r *Reader) HasPacket(i uint32) (bool, error) {
	if r.index != nil {
		return i < r.index.count, nil
	}
	if i < r.packetIndex {
		return false, errors.Wrapf(format.ErrNoIndex, "packet %d is behind packet %d", i, r.packetIndex)
	}
	if r.IsStreamed() {
		if err := r.skipStream(i); err != nil {
			return false, err
		}
		return r.stream.pending != nil, nil
	}
	if err := r.skipTo(i); err != nil {
		return false, err
	}
	return r.packetOffset < r.preFooter, nil
}

// ReadPacket decodes packet i. Banks see i as their event number in a
// native file; streams count the packets they have handed out.
func (r *Reader) ReadPacket(i uint32) (*format.Packet, error) {
	if r.IsStreamed() {
		if i < r.packetIndex {
			return nil, errors.Wrapf(format.ErrNoIndex, "packet %d is behind packet %d", i, r.packetIndex)
		}
		if err := r.skipStream(i); err != nil {
			return nil, err
		}
		if r.stream.pending == nil {
			return nil, errors.Wrapf(format.ErrIndexOutOfBounds, "packet %d", i)
		}
		p := r.stream.pending
		r.stream.pending = nil
		r.packetIndex++
		return p, nil
	}

	offset := r.packetOffset
	if r.index != nil {
		if i >= r.index.count {
			return nil, errors.Wrapf(format.ErrIndexOutOfBounds, "packet %d of %d", i, r.index.count)
		}
		offset = r.index.offset(i)
		if offset < format.HEADER_SIZE || offset >= r.preFooter {
			return nil, errors.Wrapf(format.ErrBadFormat, "index puts packet %d at %d", i, offset)
		}
	} else if i != r.packetIndex {
		if i < r.packetIndex {
			return nil, errors.Wrapf(format.ErrNoIndex, "packet %d is behind packet %d", i, r.packetIndex)
		}
		if err := r.skipTo(i); err != nil {
			return nil, err
		}
		offset = r.packetOffset
	}
	if offset >= r.preFooter {
		return nil, errors.Wrapf(format.ErrIndexOutOfBounds, "packet %d", i)
	}

	length, err := r.packetLengthAt(offset)
	if err != nil {
		return nil, err
	}
	body := make([]byte, length)
	if _, err = r.file.ReadAt(body, int64(offset)+format.PACKET_HEADER_SIZE); err != nil {
		return nil, errors.Wrapf(err, "failed to read packet %d", i)
	}
	p, err := format.ParsePacket(body, r.opts.registry, r.header.RunNumber, int64(i))
	if err != nil {
		return nil, errors.Wrapf(err, "packet %d", i)
	}
	r.packetIndex = i + 1
	r.packetOffset = offset + format.PACKET_HEADER_SIZE + uint64(length)
	return p, nil
}

// ReadNextPacket returns io.EOF after the last packet.
func (r *Reader) ReadNextPacket() (*format.Packet, error) {
	if r.IsStreamed() {
		p, err := r.ReadPacket(r.packetIndex)
		if errors.Is(err, format.ErrIndexOutOfBounds) {
			return nil, io.EOF
		}
		return p, err
	}
	if r.index != nil && r.packetIndex >= r.index.count {
		return nil, io.EOF
	}
	if r.index == nil && r.packetOffset >= r.preFooter {
		return nil, io.EOF
	}
	return r.ReadPacket(r.packetIndex)
}

func (r *Reader) ResetSequentialRead() error {
	r.packetIndex = 0
	r.packetOffset = format.HEADER_SIZE
	if r.IsStreamed() {
		if err := r.stream.Close(); err != nil {
			return err
		}
		return r.openStream()
	}
	return nil
}

func (r *Reader) skipStream(i uint32) error {
	skipped, err := r.stream.skip(i - r.packetIndex)
	r.packetIndex += skipped
	if err != nil {
		return err
	}
	return r.stream.peek()
}

// skipTo walks forward over packet frames until packet i or the end of the body.
func (r *Reader) skipTo(i uint32) error {
	for r.packetIndex < i && r.packetOffset < r.preFooter {
		length, err := r.packetLengthAt(r.packetOffset)
		if err != nil {
			return err
		}
		r.packetOffset += format.PACKET_HEADER_SIZE + uint64(length)
		r.packetIndex++
	}
	return nil
}

// packetLengthAt checks the frame at offset and returns the body length.
func (r *Reader) packetLengthAt(offset uint64) (uint32, error) {
	if offset+format.PACKET_HEADER_SIZE > r.preFooter {
		return 0, errors.Wrapf(format.ErrBadFormat, "packet frame at %d runs past the body", offset)
	}
	var frame [format.PACKET_HEADER_SIZE]byte
	if _, err := r.file.ReadAt(frame[:], int64(offset)); err != nil {
		return 0, errors.Wrapf(err, "failed to read packet frame at %d", offset)
	}
	if !bytes.Equal(frame[:4], format.PACKET_MAGIC_BYTES) {
		return 0, errors.Wrapf(format.ErrBadMagic, "expected %s at %d, found %q", format.PACKET_MAGIC, offset, frame[:4])
	}
	length := ioutil.WireOrder.Uint32(frame[4:])
	if uint64(length) > r.preFooter-offset-format.PACKET_HEADER_SIZE {
		return 0, errors.Wrapf(format.ErrBadFormat, "packet at %d claims %d bytes", offset, length)
	}
	return length, nil
}

func (r *Reader) HeaderSize() uint64 {
	return format.HEADER_SIZE
}

func (r *Reader) FileSize() (uint64, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	return r.statSize()
}

// BodySize is the length of the packet run as this reader sees it.
func (r *Reader) BodySize() (uint64, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	return r.preFooter - format.HEADER_SIZE, nil
}

// OriginalBodySize is the body length the header records, 0 if it records none.
func (r *Reader) OriginalBodySize() (uint64, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	if r.header.PreFooterSize == 0 {
		return 0, nil
	}
	return r.header.PreFooterSize - format.HEADER_SIZE, nil
}

// FooterSize is what follows the body, never more than the footer declares.
func (r *Reader) FooterSize() (uint64, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	size, err := r.statSize()
	if err != nil {
		return 0, err
	}
	if size < r.preFooter {
		return 0, nil
	}
	rest := size - r.preFooter
	if rest < format.FOOTER_COUNT_SIZE {
		return rest, nil
	}
	var count [format.FOOTER_COUNT_SIZE]byte
	if _, err = r.file.ReadAt(count[:], int64(r.preFooter)); err != nil {
		return 0, errors.Wrap(err, "failed to read packet count")
	}
	want := format.FOOTER_COUNT_SIZE + uint64(ioutil.WireOrder.Uint32(count[:]))*format.FOOTER_ENTRY_SIZE
	if rest < want {
		return rest, nil
	}
	return want, nil
}

func (r *Reader) Close() error {
	var errs []error
	if err := r.unmapIndex(); err != nil {
		errs = append(errs, err)
	}
	if r.stream != nil {
		if err := r.stream.Close(); err != nil {
			errs = append(errs, err)
		}
		r.stream = nil
	}
	if err := r.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "failed to close %s", r.path)
	}
	return nil
}
