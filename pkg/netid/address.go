// vl2rule/pkg/netid/address.go

// Package netid holds the network identity value types embedded in rules:
// 40-bit node addresses, MAC addresses and IP addresses.
package netid

import (
	"fmt"
	"strconv"
)

const (
	// AddressSize is the wire size of a node address in bytes.
	AddressSize = 5

	// AddressReservedPrefix is the top byte no valid node address may carry.
	AddressReservedPrefix = 0xff

	addressMask = 0xffffffffff
)

// Address is a 40-bit virtual network node id. The zero value is not a valid
// address.
type Address uint64

// AddressFromUint64 masks i to 40 bits and returns it as an Address. It
// reports false for zero and for addresses carrying the reserved prefix.
func AddressFromUint64(i uint64) (Address, bool) {
	i &= addressMask
	if i == 0 || i>>32 == AddressReservedPrefix {
		return 0, false
	}
	return Address(i), true
}

// ParseAddress parses the 10 hex digit text form of an address.
func ParseAddress(s string) (Address, error) {
	if len(s) != AddressSize*2 {
		return 0, fmt.Errorf("invalid address %q: want %d hex digits", s, AddressSize*2)
	}
	i, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	a, ok := AddressFromUint64(i)
	if !ok {
		return 0, fmt.Errorf("invalid address %q: reserved or zero", s)
	}
	return a, nil
}

// Uint64 returns the address as an integer.
func (a Address) Uint64() uint64 {
	return uint64(a)
}

func (a Address) String() string {
	return fmt.Sprintf("%010x", uint64(a)&addressMask)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
