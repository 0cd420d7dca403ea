package reader

import (
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
)

const checksumChunk = 1 << 16

// HasChecksum reports whether the header was finished. Streams never have one
// that can be trusted without the footer.
func (r *Reader) HasChecksum() bool {
	return !r.IsStreamed() && r.header.PreFooterSize != 0
}

func (r *Reader) Checksum() (uint32, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	if !r.HasChecksum() {
		return 0, format.ErrNoChecksum
	}
	return r.header.Checksum, nil
}

// foldHeader starts the checksum with the header as it is on disk, checksum
// and pre-footer fields zeroed.
func (r *Reader) foldHeader(adler *ioutil.Adler) error {
	raw := make([]byte, format.HEADER_SIZE)
	if _, err := r.file.ReadAt(raw, 0); err != nil {
		return errors.Wrap(err, "failed to read header")
	}
	for i := format.CHECKSUM_OFFSET; i < format.HEADER_SIZE; i++ {
		raw[i] = 0
	}
	adler.Write(raw)
	return nil
}

func (r *Reader) foldRange(adler *ioutil.Adler, offset, length uint64) error {
	section := io.NewSectionReader(r.file, int64(offset), int64(length))
	br := ioutil.NewBlockReader(section, checksumChunk)
	err := br.FoldAll(func(block []byte) {
		adler.Write(block)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to read %d bytes at %d", length, offset)
	}
	return nil
}

// CalculateChecksum runs Adler-32 over the header and body.
func (r *Reader) CalculateChecksum() (uint32, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	adler := ioutil.NewAdler(ioutil.ADLER_SEED)
	if err := r.foldHeader(adler); err != nil {
		return 0, err
	}
	if err := r.foldRange(adler, format.HEADER_SIZE, r.preFooter-format.HEADER_SIZE); err != nil {
		return 0, err
	}
	return adler.Sum32(), nil
}

// VerifyChecksum compares the recorded checksum against a fresh one.
func (r *Reader) VerifyChecksum() error {
	expected, err := r.Checksum()
	if err != nil {
		return err
	}
	return r.VerifyExpectedChecksum(expected)
}

// VerifyExpectedChecksum fails with a *format.ChecksumError on mismatch.
func (r *Reader) VerifyExpectedChecksum(expected uint32) error {
	actual, err := r.CalculateChecksum()
	if err != nil {
		return err
	}
	if actual != expected {
		return &format.ChecksumError{Expected: expected, Actual: actual}
	}
	return nil
}

// GenerateIndexAndChecksum walks every packet, then rewrites the footer,
// the checksum and the pre-footer size, and cuts the file after the new
// footer. A failure part way can leave the file half rewritten.
func (r *Reader) GenerateIndexAndChecksum() (uint32, error) {
	if r.IsStreamed() {
		return 0, format.ErrStreamed
	}
	if r.opts.readOnly {
		return 0, format.ErrReadOnly
	}
	if err := r.unmapIndex(); err != nil {
		return 0, err
	}

	adler := ioutil.NewAdler(ioutil.ADLER_SEED)
	if err := r.foldHeader(adler); err != nil {
		return 0, err
	}
	var offsets []uint64
	for offset := uint64(format.HEADER_SIZE); offset < r.preFooter; {
		length, err := r.packetLengthAt(offset)
		if err != nil {
			return 0, errors.Wrapf(err, "packet %d", len(offsets))
		}
		size := format.PACKET_HEADER_SIZE + uint64(length)
		if err = r.foldRange(adler, offset, size); err != nil {
			return 0, err
		}
		offsets = append(offsets, offset)
		offset += size
	}
	sum := adler.Sum32()

	footer := make([]byte, format.FOOTER_COUNT_SIZE+len(offsets)*format.FOOTER_ENTRY_SIZE)
	ioutil.WireOrder.PutUint32(footer, uint32(len(offsets)))
	for i, offset := range offsets {
		ioutil.WireOrder.PutUint64(footer[format.FOOTER_COUNT_SIZE+i*format.FOOTER_ENTRY_SIZE:], offset)
	}
	if _, err := r.file.WriteAt(footer, int64(r.preFooter)); err != nil {
		return 0, errors.Wrap(err, "failed to write footer")
	}

	var tail [12]byte
	ioutil.WireOrder.PutUint32(tail[:4], sum)
	ioutil.WireOrder.PutUint64(tail[4:], r.preFooter)
	if _, err := r.file.WriteAt(tail[:], format.CHECKSUM_OFFSET); err != nil {
		return 0, errors.Wrap(err, "failed to write checksum")
	}
	if err := r.file.Truncate(int64(r.preFooter) + int64(len(footer))); err != nil {
		return 0, errors.Wrap(err, "failed to truncate file")
	}
	if err := r.file.Sync(); err != nil {
		return 0, errors.Wrap(err, "failed to sync file")
	}

	r.header.Checksum = sum
	r.header.PreFooterSize = r.preFooter
	if _, err := r.MapIndex(); err != nil {
		return 0, err
	}
	return sum, nil
}
