package ioutil

import (
	"bufio"
	"bytes"
	"io"
)

// BlockReader hands a stream out in fixed size chunks; the last one may be short.
type BlockReader struct {
	reader    *bufio.Reader
	ChunkSize uint64
}

func NewBlockReader(reader io.Reader, chunkSize uint64) *BlockReader {
	return &BlockReader{
		reader:    bufio.NewReaderSize(reader, int(chunkSize)),
		ChunkSize: chunkSize,
	}
}

// ReadBlock returns the next chunk. The final chunk comes back together
// with io.EOF; after that it returns nil, io.EOF.
func (br *BlockReader) ReadBlock() ([]byte, error) {
	buffer := new(bytes.Buffer)
	n, err := io.CopyN(buffer, br.reader, int64(br.ChunkSize))
	if err == io.EOF {
		if n == 0 {
			return nil, io.EOF
		}
		return buffer.Bytes(), io.EOF
	} else if err != nil {
		return buffer.Bytes(), err
	}
	if _, err = br.reader.Peek(1); err == io.EOF {
		return buffer.Bytes(), io.EOF
	}
	return buffer.Bytes(), err
}

// FoldAll runs every remaining block through fn.
func (br *BlockReader) FoldAll(fn func([]byte)) error {
	for {
		block, err := br.ReadBlock()
		if block != nil {
			fn(block)
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
	}
}
