//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package reader

import (
	"os"

	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
)

// Without mmap the index is read into memory.
func mapIndex(file *os.File, offset int64, count uint32) (*packetIndex, error) {
	entries := make([]byte, int(count)*format.FOOTER_ENTRY_SIZE)
	if _, err := file.ReadAt(entries, offset); err != nil {
		return nil, errors.Wrap(err, "failed to read index")
	}
	return &packetIndex{entries: entries, count: count}, nil
}

func unmapRegion(mapping []byte) error {
	return nil
}
