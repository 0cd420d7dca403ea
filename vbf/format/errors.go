package format

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrBadMagic            = errors.New("bad magic")
	ErrBadVersion          = errors.New("unsupported version")
	ErrBadFormat           = errors.New("malformed data")
	ErrSizeInvalid         = errors.New("declared size is too small for its contents")
	ErrDuplicateBankName   = errors.New("duplicate bank name in packet")
	ErrNoIndex             = errors.New("no index: packets can only be read in increasing order")
	ErrIndexOutOfBounds    = errors.New("packet index out of bounds")
	ErrStreamed            = errors.New("operation not supported on a compressed stream")
	ErrReadOnly            = errors.New("file is open read-only")
	ErrNoChecksum          = errors.New("file has no checksum")
	ErrChecksumInvalid     = errors.New("checksum mismatch")
	ErrBadIndex            = errors.New("packet index is behind the writer")
	ErrWriterFinished      = errors.New("writer is finished")
	ErrBankVersion         = errors.New("unsupported bank version")
	ErrEventNumberConflict = errors.New("event number conflict")
	ErrRunConflict         = errors.New("run number conflict")
	ErrArrayEventFull      = errors.New("array event is full")
)

// ChecksumError carries both sides of a failed comparison.
type ChecksumError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %08x, calculated %08x", e.Expected, e.Actual)
}

func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumInvalid
}

// IsFormatError is true for anything that means the bytes themselves are wrong.
func IsFormatError(err error) bool {
	for _, target := range []error{
		ErrBadMagic, ErrBadVersion, ErrBadFormat, ErrSizeInvalid,
		ErrDuplicateBankName, ErrBankVersion, ErrEventNumberConflict, ErrRunConflict, ErrArrayEventFull,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
