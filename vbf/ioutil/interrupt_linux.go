//go:build linux

package ioutil

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// InterruptibleInput soaks packets from a file descriptor and lets another
// goroutine cut a blocking wait short. Interrupts go through a self pipe so
// a wait that starts after Interrupt still sees it.
type InterruptibleInput struct {
	*RingInput
	file *os.File
	rfd  int
	wfd  int
	eof  bool
}

func NewInterruptibleInput(file *os.File, size int) (*InterruptibleInput, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, errors.Wrap(err, "failed to create interrupt pipe")
	}
	return &InterruptibleInput{
		RingInput: NewRingInput(size),
		file:      file,
		rfd:       fds[0],
		wfd:       fds[1],
	}, nil
}

// Interrupt wakes up one pending or future WaitForPacket. Safe from any goroutine.
func (in *InterruptibleInput) Interrupt() error {
	_, err := unix.Write(in.wfd, []byte{1})
	if err == unix.EAGAIN {
		// pipe already full of wakeups
		return nil
	}
	return err
}

func (in *InterruptibleInput) drainInterrupts() {
	var junk [64]byte
	for {
		n, err := unix.Read(in.rfd, junk[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// wait soaks from the file until ready says so. It returns ErrInterrupted
// after Interrupt or once ctx is done.
func (in *InterruptibleInput) wait(ctx context.Context, ready func() (bool, error)) error {
	stop := context.AfterFunc(ctx, func() { in.Interrupt() })
	defer stop()

	for {
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

		fds := []unix.PollFd{
			{Fd: int32(in.file.Fd()), Events: unix.POLLIN},
			{Fd: int32(in.rfd), Events: unix.POLLIN},
		}
		if _, err = unix.Poll(fds, -1); err != nil {
			if err == unix.EINTR {
				continue
			}
			return errors.Wrap(err, "failed to poll input")
		}
		if fds[1].Revents&unix.POLLIN != 0 {
			in.drainInterrupts()
			return ErrInterrupted
		}
		if fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			_, err = in.Soak(in.file, 0)
			if err == io.EOF {
				in.eof = true
			} else if err != nil {
				return errors.Wrap(err, "failed to soak input")
			}
		}
	}
}

// Close releases the interrupt pipe. The file belongs to the caller.
func (in *InterruptibleInput) Close() error {
	err := unix.Close(in.rfd)
	if werr := unix.Close(in.wfd); err == nil {
		err = werr
	}
	return err
}
