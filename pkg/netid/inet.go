// vl2rule/pkg/netid/inet.go

package netid

import (
	"fmt"
	"net/netip"
)

// InetAddress is an IPv4 or IPv6 address.
type InetAddress struct {
	addr netip.Addr
}

// InetAddressFrom4 wraps a raw IPv4 address.
func InetAddressFrom4(b [4]byte) InetAddress {
	return InetAddress{addr: netip.AddrFrom4(b)}
}

// InetAddressFrom16 wraps a raw IPv6 address.
func InetAddressFrom16(b [16]byte) InetAddress {
	return InetAddress{addr: netip.AddrFrom16(b)}
}

// ParseInetAddress parses dotted IPv4 or RFC 4291 IPv6 text. IPv4-mapped IPv6
// addresses stay IPv6.
func ParseInetAddress(s string) (InetAddress, error) {
	a, err := netip.ParseAddr(s)
	if err != nil {
		return InetAddress{}, fmt.Errorf("invalid ip %q: %w", s, err)
	}
	if a.Zone() != "" {
		return InetAddress{}, fmt.Errorf("invalid ip %q: zones not allowed", s)
	}
	return InetAddress{addr: a}, nil
}

func (i InetAddress) IsValid() bool { return i.addr.IsValid() }
func (i InetAddress) Is4() bool     { return i.addr.Is4() }
func (i InetAddress) Is6() bool     { return i.addr.Is6() }

// As4 returns the IPv4 bytes. It panics if the address is not IPv4.
func (i InetAddress) As4() [4]byte { return i.addr.As4() }

// As16 returns the 16-byte form of the address.
func (i InetAddress) As16() [16]byte { return i.addr.As16() }

func (i InetAddress) String() string {
	return i.addr.String()
}

func (i InetAddress) MarshalText() ([]byte, error) {
	if !i.addr.IsValid() {
		return []byte{}, nil
	}
	return i.addr.MarshalText()
}

func (i *InetAddress) UnmarshalText(text []byte) error {
	parsed, err := ParseInetAddress(string(text))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}
