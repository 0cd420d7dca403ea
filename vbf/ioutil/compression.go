package ioutil

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// CompressWriter reads src until there is no more to read and writes it,
// compressed, into dst. It returns the number of bytes read from src.
type CompressWriter interface {
	Copy(dst io.Writer, src io.Reader) (int64, error)
}

type CopyWriter struct{}

func (compressor CopyWriter) Copy(dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, src)
}

type GzipWriter struct {
	Level int
}

func (compressor GzipWriter) Copy(dst io.Writer, src io.Reader) (int64, error) {
	level := compressor.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	gWriter, err := gzip.NewWriterLevel(dst, level)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create gzip writer")
	}
	n, err := io.Copy(gWriter, src)
	if err != nil {
		gWriter.Close()
		return n, err
	}
	return n, gWriter.Close()
}

type ZstdWriter struct {
	Dictionary []byte
}

func (compressor ZstdWriter) Copy(dst io.Writer, src io.Reader) (int64, error) {
	var opts []zstd.EOption
	if compressor.Dictionary != nil {
		opts = append(opts, zstd.WithEncoderDict(compressor.Dictionary))
	}
	zWriter, err := zstd.NewWriter(dst, opts...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create zstd writer")
	}
	n, err := zWriter.ReadFrom(src)
	if err != nil {
		zWriter.Close()
		return n, err
	}
	return n, zWriter.Close()
}

type BrotliWriter struct {
	Quality int
}

func (compressor BrotliWriter) Copy(dst io.Writer, src io.Reader) (int64, error) {
	quality := compressor.Quality
	if quality == 0 {
		quality = brotli.DefaultCompression
	}
	bWriter := brotli.NewWriterLevel(dst, quality)
	n, err := io.Copy(bWriter, src)
	if err != nil {
		bWriter.Close()
		return n, err
	}
	return n, bWriter.Close()
}

// CompressorByName maps a codec name as typed on the command line to its writer.
func CompressorByName(name string) (CompressWriter, error) {
	switch name {
	case "", "none":
		return CopyWriter{}, nil
	case "gzip", "gz":
		return GzipWriter{}, nil
	case "zstd", "zst":
		return ZstdWriter{}, nil
	case "brotli", "br":
		return BrotliWriter{}, nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "unknown codec %q", name)
}
