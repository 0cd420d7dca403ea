package format

import (
	"reflect"
	"testing"

	"github.com/pkg/errors"
)

func TestConfigMaskString(t *testing.T) {
	testCases := []struct {
		nodes    []int
		expected string
	}{
		{nil, "empty"},
		{[]int{3}, "3"},
		{[]int{0, 1, 2, 3}, "0,1,2,3"},
		{[]int{254, 8, 255, -1}, "8,254"},
	}
	for _, tc := range testCases {
		m := NewConfigMask(tc.nodes...)
		if m.String() != tc.expected {
			t.Errorf("%v: got %q, want %q", tc.nodes, m.String(), tc.expected)
		}
		back, err := ParseConfigMask(m.String())
		if err != nil || back != m {
			t.Errorf("%q did not parse back: %v", m.String(), err)
		}
	}
}

func TestParseConfigMask(t *testing.T) {
	m, err := ParseConfigMask(" 1, 2 ,100")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(m.Nodes(), []int{1, 2, 100}) || m.Cardinality() != 3 {
		t.Errorf("got %v", m.Nodes())
	}

	for _, bad := range []string{"255", "1,,2", "0001", "x", "-1", "1;2"} {
		if _, err := ParseConfigMask(bad); !errors.Is(err, ErrBadFormat) {
			t.Errorf("%q: expected ErrBadFormat, got %v", bad, err)
		}
	}
}

func TestConfigMaskBits(t *testing.T) {
	var m ConfigMask
	m.Set(9)
	if m[1] != 0x02 {
		t.Errorf("node 9 should be bit 1 of byte 1, mask is %x", m[:2])
	}
	m.Clear(9)
	if !m.Empty() {
		t.Error("mask should be empty again")
	}
	if m.Has(255) || m.Has(-3) {
		t.Error("out of range nodes are never set")
	}
}
