// vl2rule/pkg/netid/mac.go

package netid

import (
	"fmt"
	"net"
)

// MACSize is the size of a hardware address in bytes.
const MACSize = 6

// MAC is a 48-bit Ethernet hardware address. The all-zero address is not valid.
type MAC [MACSize]byte

// MACFromBytes returns the first six bytes of b as a MAC. It reports false if b
// is too short or the address is all zero.
func MACFromBytes(b []byte) (MAC, bool) {
	var m MAC
	if len(b) < MACSize {
		return m, false
	}
	copy(m[:], b)
	if m == (MAC{}) {
		return m, false
	}
	return m, true
}

// ParseMAC parses colon or dash separated hex notation.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, fmt.Errorf("invalid mac %q: %w", s, err)
	}
	m, ok := MACFromBytes(hw)
	if !ok || len(hw) != MACSize {
		return MAC{}, fmt.Errorf("invalid mac %q", s)
	}
	return m, nil
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

func (m MAC) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MAC) UnmarshalText(text []byte) error {
	parsed, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
