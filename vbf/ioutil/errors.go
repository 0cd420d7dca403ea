package ioutil

import (
	"fmt"

	"github.com/pkg/errors"
)

// DEFAULT_RING_LIMIT caps ring growth for input read from a stream.
const DEFAULT_RING_LIMIT = 64 << 20

var (
	ErrBufferFull      = errors.New("ring buffer is full")
	ErrNotEnoughData   = errors.New("not enough data buffered")
	ErrNoPacket        = errors.New("no packet is open")
	ErrBadOperation    = errors.New("operation not allowed while a packet is open")
	ErrPacketTooBig    = errors.New("packet is larger than the ring buffer")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInterrupted     = errors.New("wait was interrupted")
	ErrRingLimit       = errors.New("packet is larger than the ring may grow")
)

// LimitError is returned instead of growing a ring past its limit.
type LimitError struct {
	Need  int
	Limit int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("need a %d byte ring, limit is %d", e.Need, e.Limit)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrRingLimit
}

// IsRecoverable reports whether err is a buffering condition that goes away
// after draining, soaking more data or resizing.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrBufferFull) ||
		errors.Is(err, ErrNotEnoughData) ||
		errors.Is(err, ErrNoPacket) ||
		errors.Is(err, ErrPacketTooBig)
}
