package record

import (
	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
)

// Version is the record layout a datum was written with. The bank version
// of CoreVAEV and CoreOvrf is the same number.
type Version uint32

const (
	VERSION_AUG_2004 Version = 0
	VERSION_AUG_2005 Version = 1

	CURRENT_VERSION = VERSION_AUG_2005
)

func (v Version) String() string {
	switch v {
	case VERSION_AUG_2004:
		return "AUG_2004"
	case VERSION_AUG_2005:
		return "AUG_2005"
	}
	return "unknown"
}

func (v Version) valid() bool {
	return v == VERSION_AUG_2004 || v == VERSION_AUG_2005
}

func ParseVersion(s string) (Version, error) {
	switch s {
	case "AUG_2004":
		return VERSION_AUG_2004, nil
	case "AUG_2005":
		return VERSION_AUG_2005, nil
	}
	return 0, errors.Wrapf(format.ErrBankVersion, "unknown record version %q", s)
}

// frameSize is how many bytes sit in front of the size-counted body.
func (v Version) frameSize() int {
	if v == VERSION_AUG_2004 {
		return 8
	}
	return 12
}

// commonSize is the fixed part of every body.
func (v Version) commonSize() int {
	if v == VERSION_AUG_2004 {
		return 20
	}
	return 16
}
