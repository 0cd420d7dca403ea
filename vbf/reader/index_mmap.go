//go:build linux || darwin || freebsd || netbsd || openbsd

package reader

import (
	"os"

	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mapIndex maps count entries starting at offset. mmap wants a page aligned
// offset, so the mapping starts at the page holding the first entry.
func mapIndex(file *os.File, offset int64, count uint32) (*packetIndex, error) {
	if count == 0 {
		return &packetIndex{}, nil
	}
	page := int64(unix.Getpagesize())
	aligned := offset &^ (page - 1)
	skip := int(offset - aligned)
	length := skip + int(count)*format.FOOTER_ENTRY_SIZE

	mapping, err := unix.Mmap(int(file.Fd()), aligned, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "failed to map index")
	}
	return &packetIndex{
		mapping: mapping,
		entries: mapping[skip:],
		count:   count,
	}, nil
}

func unmapRegion(mapping []byte) error {
	return errors.Wrap(unix.Munmap(mapping), "failed to unmap index")
}
