package ioutil

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// BlockWriter counts what it writes and can pad the output with zeros up to
// the next multiple of its block size.
type BlockWriter struct {
	writer              io.Writer
	writtenSinceRealign uint64
	written             uint64
	bsize               uint64
}

func NewBlockWriter(destination io.Writer, blockSize uint64) *BlockWriter {
	return &BlockWriter{
		writer: destination,
		bsize:  blockSize,
	}
}

func (k *BlockWriter) Write(p []byte) (n int, err error) {
	written, err := k.writer.Write(p)
	k.writtenSinceRealign += uint64(written)
	k.written += uint64(written)
	return written, err
}

// WriteWhole writes p and pads to the block boundary.
func (k *BlockWriter) WriteWhole(p []byte) (n int, err error) {
	n, err = k.Write(p)
	if err != nil {
		return n, errors.Wrap(err, "failed to write block")
	}
	err = k.Align()
	return n, err
}

// Padding is how many zero bytes Align would write right now.
func (k *BlockWriter) Padding() uint64 {
	rem := k.writtenSinceRealign % k.bsize
	if rem == 0 {
		return 0
	}
	return k.bsize - rem
}

func (k *BlockWriter) Align() error {
	if pad := k.Padding(); pad != 0 {
		empty := bytes.Repeat([]byte{0}, int(pad))
		if _, err := k.Write(empty); err != nil {
			return errors.Wrap(err, "failed to finish out block")
		}
	}
	k.writtenSinceRealign = 0
	return nil
}

// Written is the total byte count, padding included.
func (k *BlockWriter) Written() uint64 {
	return k.written
}

// AlignUp rounds n up to a multiple of blockSize.
func AlignUp(n, blockSize int) int {
	return (n + blockSize - 1) / blockSize * blockSize
}
