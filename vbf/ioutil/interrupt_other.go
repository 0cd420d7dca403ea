//go:build !linux

package ioutil

import (
	"context"
	"io"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
)

// InterruptibleInput on this platform only notices an interrupt between
// reads; a read that is already blocked runs to completion first.
type InterruptibleInput struct {
	*RingInput
	file    *os.File
	pending atomic.Int32
	eof     bool
}

func NewInterruptibleInput(file *os.File, size int) (*InterruptibleInput, error) {
	return &InterruptibleInput{
		RingInput: NewRingInput(size),
		file:      file,
	}, nil
}

func (in *InterruptibleInput) Interrupt() error {
	in.pending.Add(1)
	return nil
}

func (in *InterruptibleInput) wait(ctx context.Context, ready func() (bool, error)) error {
	stop := context.AfterFunc(ctx, func() { in.Interrupt() })
	defer stop()

	for {
		if in.pending.Swap(0) != 0 {
			return ErrInterrupted
		}
		ok, err := ready()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if in.eof {
			if in.Available() == 0 {
				return io.EOF
			}
			return io.ErrUnexpectedEOF
		}
		_, err = in.Soak(in.file, 0)
		if err == io.EOF {
			in.eof = true
		} else if err != nil {
			return errors.Wrap(err, "failed to soak input")
		}
	}
}

func (in *InterruptibleInput) Close() error {
	return nil
}
