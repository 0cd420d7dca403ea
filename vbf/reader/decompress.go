package reader

import (
	"compress/bzip2"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/indrora/vbf/vbf/format"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

var (
	errUnknownCompressionType = errors.New("unknown compression")
)

func newDecompressor(compressedReader io.Reader, dcType format.CompressionType) (io.ReadCloser, error) {

	switch dcType {
	case format.COMPRESSION_NONE:
		return io.NopCloser(compressedReader), nil
	case format.COMPRESSION_GZIP:
		gz, err := gzip.NewReader(compressedReader)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open gzip stream")
		}
		return gz, nil
	case format.COMPRESSION_BZIP2:
		return io.NopCloser(bzip2.NewReader(compressedReader)), nil
	case format.COMPRESSION_ZSTD:
		zs, err := zstd.NewReader(compressedReader)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open zstd stream")
		}
		return zs.IOReadCloser(), nil
	case format.COMPRESSION_BROTLI:
		return io.NopCloser(brotli.NewReader(compressedReader)), nil
	default:
		return nil, errors.Wrapf(errUnknownCompressionType, "type %d", dcType)
	}

}
