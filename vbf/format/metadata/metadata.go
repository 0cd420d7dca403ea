package metadata

import (
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

func MakePointer[T any](x T) *T {
	return &x
}

// Annotation is free-form bookkeeping attached to a run: who took it, where,
// and anything the shift crew wanted to write down.
// By all technical means, there is no "required" field.
type Annotation struct {
	CreatedTime *time.Time        `cbor:"createdTime,omitempty"`
	Host        *string           `cbor:"host,omitempty"`
	Operator    *string           `cbor:"operator,omitempty"`
	Comment     *string           `cbor:"comment,omitempty"`
	Tags        *[]string         `cbor:"tags,omitempty"`
	Weather     *Weather          `cbor:"0,keyasint,omitempty"`
	Extra       map[string]string `cbor:"extra,omitempty"`
}

// Weather as logged by the site monitor.
type Weather struct {
	Code        *string  `cbor:"0,keyasint,omitempty"`
	Temperature *float32 `cbor:"1,keyasint,omitempty"`
	Humidity    *float32 `cbor:"2,keyasint,omitempty"`
}

// NewAnnotation stamps the current time and host name.
func NewAnnotation(comment string) Annotation {
	a := Annotation{
		CreatedTime: MakePointer(time.Now().UTC().Truncate(time.Second)),
	}
	if host, err := os.Hostname(); err == nil {
		a.Host = &host
	}
	if comment != "" {
		a.Comment = &comment
	}
	return a
}

var encMode cbor.EncMode

func init() {
	var err error
	// sorted keys so the same annotation always encodes to the same bytes
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
}

func (a *Annotation) MarshalBinary() ([]byte, error) {
	b, err := encMode.Marshal(a)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode annotation")
	}
	return b, nil
}

func (a *Annotation) UnmarshalBinary(data []byte) error {
	if err := cbor.Unmarshal(data, a); err != nil {
		return errors.Wrap(err, "failed to decode annotation")
	}
	return nil
}
