package ioutil

import (
	"hash"
	"io"
)

const (
	ADLER_BASE = 65521
	// Largest n such that 255n(n+1)/2 + (n+1)(BASE-1) fits in 32 bits.
	ADLER_NMAX = 5552
	// Adler-32 of the empty sequence.
	ADLER_SEED uint32 = 1
)

// Adler32 folds p into a running Adler-32 value.
func Adler32(adler uint32, p []byte) uint32 {
	s1, s2 := adler&0xffff, adler>>16
	for len(p) > 0 {
		chunk := p
		if len(chunk) > ADLER_NMAX {
			chunk = chunk[:ADLER_NMAX]
		}
		p = p[len(chunk):]
		for _, b := range chunk {
			s1 += uint32(b)
			s2 += s1
		}
		s1 %= ADLER_BASE
		s2 %= ADLER_BASE
	}
	return s2<<16 | s1
}

// Adler is a hash.Hash32 that can resume from any running value.
type Adler struct {
	seed  uint32
	value uint32
}

var _ hash.Hash32 = (*Adler)(nil)

func NewAdler(seed uint32) *Adler {
	return &Adler{seed: seed, value: seed}
}

func (a *Adler) Write(p []byte) (int, error) {
	a.value = Adler32(a.value, p)
	return len(p), nil
}

func (a *Adler) Sum32() uint32 {
	return a.value
}

func (a *Adler) Sum(b []byte) []byte {
	v := a.value
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (a *Adler) Reset() {
	a.value = a.seed
}

func (a *Adler) Size() int {
	return 4
}

func (a *Adler) BlockSize() int {
	return 4
}

// HashWriter hashes exactly the bytes dest accepted.
type HashWriter struct {
	writer io.Writer
	hasher hash.Hash32
}

func NewHashWriter(dest io.Writer, hasher hash.Hash32) *HashWriter {
	return &HashWriter{
		writer: dest,
		hasher: hasher,
	}
}

func (w *HashWriter) Write(b []byte) (int, error) {
	k, err := w.writer.Write(b)
	w.hasher.Write(b[:k])
	return k, err
}

func (w *HashWriter) Sum32() uint32 {
	return w.hasher.Sum32()
}
