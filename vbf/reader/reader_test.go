package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/indrora/vbf/vbf/record"
	"github.com/indrora/vbf/vbf/writer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var extraBank = format.NewBankName("Extra")

func scenarioEvent(number uint32, compressed bool) *record.Event {
	ev := record.NewEvent(4, 1, 1, 0)
	ev.NodeNumber = 3
	ev.EventNumber = number
	ev.Compressed = compressed
	ev.SetHitBit(0, true)
	copy(ev.Channels[0].Samples, []byte{10, 12, 11, 9})
	ev.Channels[0].Charge = 42
	return ev
}

func makePacket(t *testing.T, i uint32) *format.Packet {
	t.Helper()
	ae := record.NewArrayEvent(42)
	require.NoError(t, ae.AddEvent(scenarioEvent(i, i%2 == 1)))
	p := format.NewPacket()
	p.Put(record.ARRAY_EVENT_BANK, ae)
	p.Put(extraBank, &format.RawBank{Name: extraBank, BankVer: 2, Body: []byte(fmt.Sprintf("packet %d", i))})
	return p
}

func encodePacket(t *testing.T, p *format.Packet) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, p.Encode(buf))
	return buf.Bytes()
}

// writeRun writes n packets and returns each one's encoded body.
func writeRun(t *testing.T, path string, n int, opts ...writer.Option) [][]byte {
	t.Helper()
	w, err := writer.Create(path, 42, format.NewConfigMask(3), opts...)
	require.NoError(t, err)
	var bodies [][]byte
	for i := 0; i < n; i++ {
		p := makePacket(t, uint32(i))
		require.NoError(t, w.WritePacket(p))
		bodies = append(bodies, encodePacket(t, p))
	}
	require.NoError(t, w.Finish())
	return bodies
}

func fullRegistry() *format.Registry {
	reg := record.DefaultRegistry()
	reg.SetFallback(format.RawBuilder)
	return reg
}

func tempPath(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}

func TestReaderIndexRoundTrip(t *testing.T) {
	path := tempPath(t, "run.vbf")
	bodies := writeRun(t, path, 10)

	r, err := Open(path, WithIndex(true), WithRegistry(fullRegistry()))
	require.NoError(t, err)
	defer r.Close()

	assert.True(t, r.HasIndex())
	n, err := r.NumPackets()
	require.NoError(t, err)
	require.Equal(t, uint32(10), n)
	assert.Equal(t, uint32(42), r.RunNumber())
	assert.Equal(t, "3", r.ConfigMask().String())
	assert.False(t, r.IsStreamed())

	for i := int(n) - 1; i >= 0; i-- {
		p, err := r.ReadPacket(uint32(i))
		require.NoError(t, err, "packet %d", i)
		if !assert.Equal(t, bodies[i], encodePacket(t, p), "packet %d", i) {
			t.Log(spew.Sdump(p))
		}
	}

	ok, err := r.HasPacket(10)
	assert.NoError(t, err)
	assert.False(t, ok)
	_, err = r.ReadPacket(10)
	assert.True(t, errors.Is(err, format.ErrIndexOutOfBounds), "got %v", err)

	assert.True(t, r.HasChecksum())
	assert.NoError(t, r.VerifyChecksum())

	body, _ := r.BodySize()
	original, _ := r.OriginalBodySize()
	footer, _ := r.FooterSize()
	size, _ := r.FileSize()
	assert.Equal(t, body, original)
	assert.Equal(t, uint64(4+10*8), footer)
	assert.Equal(t, size, r.HeaderSize()+body+footer)
}

func TestReaderSequentialWithoutIndex(t *testing.T) {
	path := tempPath(t, "noindex.vbf")
	bodies := writeRun(t, path, 10, writer.KeepIndex(false))

	_, err := Open(path, WithIndex(true))
	assert.True(t, errors.Is(err, format.ErrNoIndex), "got %v", err)

	r, err := Open(path, WithRegistry(fullRegistry()))
	require.NoError(t, err)
	defer r.Close()

	ok, err := r.MapIndex()
	assert.NoError(t, err)
	assert.False(t, ok)
	_, err = r.NumPackets()
	assert.True(t, errors.Is(err, format.ErrNoIndex))
	assert.False(t, r.HasChecksum())
	_, err = r.Checksum()
	assert.True(t, errors.Is(err, format.ErrNoChecksum))
	assert.True(t, errors.Is(r.VerifyChecksum(), format.ErrNoChecksum))
	footer, _ := r.FooterSize()
	assert.Equal(t, uint64(0), footer)

	count := 0
	for {
		p, err := r.ReadNextPacket()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, bodies[count], encodePacket(t, p))
		count++
	}
	assert.Equal(t, 10, count)

	_, err = r.ReadPacket(3)
	assert.True(t, errors.Is(err, format.ErrNoIndex), "got %v", err)

	require.NoError(t, r.ResetSequentialRead())
	p, err := r.ReadPacket(5)
	require.NoError(t, err)
	assert.Equal(t, bodies[5], encodePacket(t, p))

	_, err = r.HasPacket(4)
	assert.True(t, errors.Is(err, format.ErrNoIndex))
	ok, err = r.HasPacket(9)
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.HasPacket(10)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestReaderScenario(t *testing.T) {
	path := tempPath(t, "scenario.vbf")
	writeRun(t, path, 2)

	r, err := Open(path, WithIndex(true))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint32(42), r.RunNumber())
	assert.True(t, r.ConfigMask().Has(3))

	for i, compressed := range []bool{false, true} {
		p, err := r.ReadPacket(uint32(i))
		require.NoError(t, err)
		assert.False(t, p.Has(extraBank), "default registry skips unknown banks")

		b, ok := p.Get(record.ARRAY_EVENT_BANK)
		require.True(t, ok)
		ae := b.(*record.ArrayEvent)
		ev := ae.EventByNode(3)
		require.NotNil(t, ev)
		assert.Equal(t, compressed, ev.Compressed)
		assert.Equal(t, uint32(i), ev.EventNumber)
		assert.Equal(t, []byte{10, 12, 11, 9}, ev.Channels[0].Samples)
		assert.Equal(t, uint16(42), ev.Channels[0].Charge)
	}
}

func TestReaderEventNumberConflict(t *testing.T) {
	path := tempPath(t, "conflict.vbf")
	w, err := writer.Create(path, 42, format.NewConfigMask(3))
	require.NoError(t, err)
	ae := record.NewArrayEvent(42)
	require.NoError(t, ae.AddEvent(scenarioEvent(5, false)))
	p := format.NewPacket()
	p.Put(record.ARRAY_EVENT_BANK, ae)
	require.NoError(t, w.WritePacket(p))
	require.NoError(t, w.Finish())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadPacket(0)
	assert.True(t, errors.Is(err, format.ErrEventNumberConflict), "got %v", err)
}

func TestReaderTruncatedFooter(t *testing.T) {
	path := tempPath(t, "truncated.vbf")
	bodies := writeRun(t, path, 5)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-3))

	_, err = Open(path, WithIndex(true))
	assert.True(t, errors.Is(err, format.ErrNoIndex), "got %v", err)

	r, err := Open(path, WithRegistry(fullRegistry()))
	require.NoError(t, err)
	defer r.Close()

	ok, err := r.MapIndex()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, r.HasIndex())

	footer, err := r.FooterSize()
	require.NoError(t, err)
	assert.Equal(t, uint64(4+5*8-3), footer)

	for i := range bodies {
		p, err := r.ReadNextPacket()
		require.NoError(t, err)
		assert.Equal(t, bodies[i], encodePacket(t, p))
	}
	_, err = r.ReadNextPacket()
	assert.Equal(t, io.EOF, err)

	// the header still has a checksum even without a usable footer
	assert.NoError(t, r.VerifyChecksum())
}

func TestReaderTruncatedBody(t *testing.T) {
	path := tempPath(t, "cut.vbf")
	writeRun(t, path, 5)
	r, err := Open(path)
	require.NoError(t, err)
	body, _ := r.BodySize()
	r.Close()
	require.NoError(t, os.Truncate(path, int64(format.HEADER_SIZE+body-5)))

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()
	cut, _ := r.BodySize()
	original, _ := r.OriginalBodySize()
	assert.Equal(t, body-5, cut)
	assert.Equal(t, body, original)

	for i := 0; i < 4; i++ {
		_, err = r.ReadNextPacket()
		require.NoError(t, err, "packet %d", i)
	}
	_, err = r.ReadNextPacket()
	assert.True(t, format.IsFormatError(err), "got %v", err)
}

func TestReaderStreams(t *testing.T) {
	cases := []struct {
		name        string
		codec       string
		compression format.CompressionType
		opts        []Option
		keepIndex   bool
	}{
		{"gzip", "gzip", format.COMPRESSION_GZIP, nil, true},
		{"gzip without footer", "gzip", format.COMPRESSION_GZIP, nil, false},
		{"zstd", "zstd", format.COMPRESSION_ZSTD, nil, true},
		{"brotli", "brotli", format.COMPRESSION_BROTLI, []Option{WithCompression(format.COMPRESSION_BROTLI)}, true},
		{"small ring", "gzip", format.COMPRESSION_GZIP, []Option{WithRingSize(16)}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			native := tempPath(t, "run.vbf")
			bodies := writeRun(t, native, 6, writer.KeepIndex(tc.keepIndex))
			packed := native + "." + tc.codec
			packFile(t, native, packed, tc.codec)

			_, err := Open(packed, append(tc.opts, ReadOnly(false))...)
			assert.True(t, errors.Is(err, format.ErrStreamed), "writable stream: got %v", err)

			r, err := Open(packed, append(tc.opts, WithRegistry(fullRegistry()))...)
			require.NoError(t, err)
			defer r.Close()

			assert.True(t, r.IsStreamed())
			assert.Equal(t, tc.compression, r.Compression())
			assert.Equal(t, uint32(42), r.RunNumber())
			assert.False(t, r.HasChecksum())
			for _, query := range []func() (uint64, error){r.FileSize, r.BodySize, r.OriginalBodySize, r.FooterSize} {
				_, err = query()
				assert.True(t, errors.Is(err, format.ErrStreamed))
			}
			_, err = r.MapIndex()
			assert.True(t, errors.Is(err, format.ErrStreamed))
			_, err = r.CalculateChecksum()
			assert.True(t, errors.Is(err, format.ErrStreamed))

			for i := range bodies {
				p, err := r.ReadNextPacket()
				require.NoError(t, err, "packet %d", i)
				assert.Equal(t, bodies[i], encodePacket(t, p))
			}
			_, err = r.ReadNextPacket()
			assert.Equal(t, io.EOF, err)

			require.NoError(t, r.ResetSequentialRead())
			ok, err := r.HasPacket(3)
			require.NoError(t, err)
			assert.True(t, ok)
			p, err := r.ReadPacket(3)
			require.NoError(t, err)
			assert.Equal(t, bodies[3], encodePacket(t, p))
			_, err = r.ReadPacket(1)
			assert.True(t, errors.Is(err, format.ErrNoIndex))
			_, err = r.ReadPacket(6)
			assert.True(t, errors.Is(err, format.ErrIndexOutOfBounds))
		})
	}
}

func packFile(t *testing.T, src, dst, codec string) {
	t.Helper()
	compressor, err := ioutil.CompressorByName(codec)
	require.NoError(t, err)
	in, err := os.Open(src)
	require.NoError(t, err)
	defer in.Close()
	out, err := os.Create(dst)
	require.NoError(t, err)
	defer out.Close()
	_, err = compressor.Copy(out, in)
	require.NoError(t, err)
}

func TestReaderReindex(t *testing.T) {
	path := tempPath(t, "reindex.vbf")
	writeRun(t, path, 7)
	finished, err := os.ReadFile(path)
	require.NoError(t, err)

	// strip the footer the way a crash before Finish would leave the file
	preFooter := ioutil.WireOrder.Uint64(finished[format.PRE_FOOTER_OFFSET:])
	stripped := append([]byte(nil), finished[:preFooter]...)
	for i := format.CHECKSUM_OFFSET; i < format.HEADER_SIZE; i++ {
		stripped[i] = 0
	}
	require.NoError(t, os.WriteFile(path, stripped, 0644))

	r, err := Open(path)
	require.NoError(t, err)
	_, err = r.GenerateIndexAndChecksum()
	assert.True(t, errors.Is(err, format.ErrReadOnly))
	r.Close()

	r, err = Open(path, ReadOnly(false))
	require.NoError(t, err)
	defer r.Close()
	assert.False(t, r.HasChecksum())

	sum, err := r.GenerateIndexAndChecksum()
	require.NoError(t, err)
	assert.Equal(t, ioutil.WireOrder.Uint32(finished[format.CHECKSUM_OFFSET:]), sum)
	assert.True(t, r.HasIndex())
	assert.True(t, r.HasChecksum())
	n, _ := r.NumPackets()
	assert.Equal(t, uint32(7), n)
	assert.NoError(t, r.VerifyChecksum())

	rebuilt, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, finished, rebuilt)
}

func TestReaderChecksumMismatch(t *testing.T) {
	path := tempPath(t, "corrupt.vbf")
	writeRun(t, path, 4)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	at := bytes.Index(b, []byte("packet 2"))
	require.True(t, at > 0)
	b[at] = 'P'
	require.NoError(t, os.WriteFile(path, b, 0644))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	err = r.VerifyChecksum()
	assert.True(t, errors.Is(err, format.ErrChecksumInvalid), "got %v", err)
	var mismatch *format.ChecksumError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, ioutil.WireOrder.Uint32(b[format.CHECKSUM_OFFSET:]), mismatch.Expected)
	assert.NoError(t, r.VerifyExpectedChecksum(mismatch.Actual))

	// the damage is in a bank nobody decodes, so reading still works
	_, err = r.ReadPacket(2)
	assert.NoError(t, err)
}

func TestReaderBadHeader(t *testing.T) {
	good := format.NewHeader(1, format.NewConfigMask())
	raw := good.ToBytes()

	cases := []struct {
		name   string
		bytes  func() []byte
		target error
	}{
		{"short", func() []byte { return raw[:20] }, format.ErrBadFormat},
		{"magic", func() []byte {
			b := append([]byte(nil), raw...)
			b[3] = 'X'
			return b
		}, format.ErrBadMagic},
		{"version", func() []byte {
			b := append([]byte(nil), raw...)
			b[4] = 1
			return b
		}, format.ErrBadVersion},
		{"pre-footer inside header", func() []byte {
			b := append([]byte(nil), raw...)
			b[format.PRE_FOOTER_OFFSET] = 10
			return b
		}, format.ErrBadFormat},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := tempPath(t, "bad.vbf")
			require.NoError(t, os.WriteFile(path, tc.bytes(), 0644))
			_, err := Open(path)
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
		})
	}

	path := tempPath(t, "empty.vbf")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadNextPacket()
	assert.Equal(t, io.EOF, err)
	body, _ := r.BodySize()
	assert.Equal(t, uint64(0), body)
}

func TestReaderStreamPacketLength(t *testing.T) {
	frame := func(pre uint64, length uint32) []byte {
		h := format.NewHeader(42, format.NewConfigMask(3))
		h.PreFooterSize = pre
		raw := append(h.ToBytes(), format.PACKET_MAGIC_BYTES...)
		var n [4]byte
		ioutil.WireOrder.PutUint32(n[:], length)
		return append(append(raw, n[:]...), "a body far shorter than it claims"...)
	}
	body := uint64(format.HEADER_SIZE + format.PACKET_HEADER_SIZE + 33)

	cases := []struct {
		name   string
		raw    []byte
		opts   []Option
		target error
	}{
		{"past the recorded body", frame(body, 34), nil, format.ErrBadFormat},
		{"near 4GiB, recorded body", frame(body, 0xfffffff0), nil, format.ErrBadFormat},
		{"near 4GiB, no recorded body", frame(0, 0xfffffff0), nil, ioutil.ErrRingLimit},
		{"past a set limit", frame(0, 5000), []Option{WithRingSize(64), WithRingLimit(4096)}, ioutil.ErrRingLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			native := tempPath(t, "huge.vbf")
			require.NoError(t, os.WriteFile(native, tc.raw, 0644))
			packed := native + ".gz"
			packFile(t, native, packed, "gzip")

			r, err := Open(packed, tc.opts...)
			require.NoError(t, err)
			defer r.Close()
			_, err = r.ReadNextPacket()
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
		})
	}
}
