package format

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ConfigMask says which telescopes took part in a run. Bit j of byte i is node i*8+j.
type ConfigMask [CONFIG_MASK_SIZE]byte

func NewConfigMask(nodes ...int) ConfigMask {
	var m ConfigMask
	for _, n := range nodes {
		m.Set(n)
	}
	return m
}

// Set ignores nodes outside 0..254.
func (m *ConfigMask) Set(node int) {
	if node < 0 || node >= MAX_NODES {
		return
	}
	m[node/8] |= 1 << (node % 8)
}

func (m *ConfigMask) Clear(node int) {
	if node < 0 || node >= CONFIG_MASK_SIZE*8 {
		return
	}
	m[node/8] &^= 1 << (node % 8)
}

func (m ConfigMask) Has(node int) bool {
	if node < 0 || node >= MAX_NODES {
		return false
	}
	return m[node/8]&(1<<(node%8)) != 0
}

func (m ConfigMask) Nodes() []int {
	nodes := make([]int, 0, m.Cardinality())
	for n := 0; n < MAX_NODES; n++ {
		if m.Has(n) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

func (m ConfigMask) Cardinality() int {
	count := 0
	for i, b := range m {
		if i == CONFIG_MASK_SIZE-1 {
			b &= 0x7f
		}
		count += bits.OnesCount8(b)
	}
	return count
}

func (m ConfigMask) Empty() bool {
	return m.Cardinality() == 0
}

// String is the comma separated node list, or "empty".
func (m ConfigMask) String() string {
	nodes := m.Nodes()
	if len(nodes) == 0 {
		return "empty"
	}
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseConfigMask reads what String writes. Whitespace around ids is allowed.
func ParseConfigMask(s string) (ConfigMask, error) {
	var m ConfigMask
	s = strings.TrimSpace(s)
	if s == "" || s == "empty" {
		return m, nil
	}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if len(part) == 0 || len(part) > 3 {
			return m, errors.Wrapf(ErrBadFormat, "bad node id %q in config mask", part)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n >= MAX_NODES {
			return m, errors.Wrapf(ErrBadFormat, "bad node id %q in config mask", part)
		}
		m.Set(n)
	}
	return m, nil
}
