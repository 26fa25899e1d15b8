package protocol

import (
	"encoding/hex"
	"strings"
)

// Address is a fixed-width link address as programmed into a reception pipe.
type Address [AddressWidth]byte

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) String() string { return hex.EncodeToString(a[:]) }

// ParseAddress accepts exactly 2*AddressWidth hex digits.
func ParseAddress(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != AddressWidth {
		return a, ErrInvalidAddress
	}
	copy(a[:], b)
	return a, nil
}

// Registry maps symbolic peer names to link addresses. It is built once and
// never mutated afterwards, so it can be shared by reference.
type Registry struct {
	names map[string]Address
}

var builtinAddresses = map[string]Address{
	"HUB01": {0x11, 0x22, 0x33, 0x44, 0x55},
	"HUB02": {0x55, 0x44, 0x33, 0x22, 0x11},
}

// DefaultRegistry knows only the built-in names.
var DefaultRegistry = NewRegistry(nil)

// NewRegistry copies the built-in table and layers extra on top of it.
func NewRegistry(extra map[string]Address) *Registry {
	names := make(map[string]Address, len(builtinAddresses)+len(extra))
	for k, v := range builtinAddresses {
		names[k] = v
	}
	for k, v := range extra {
		names[k] = v
	}
	return &Registry{names: names}
}

// Resolve is total: known names map to their fixed address, anything else is
// derived from the first AddressWidth bytes of the name, zero-padded.
// Duplicates are not detected here.
func (r *Registry) Resolve(name string) Address {
	if a, ok := r.names[name]; ok {
		return a
	}
	var a Address
	copy(a[:], name)
	return a
}

// Known reports whether name has an explicit table entry.
func (r *Registry) Known(name string) bool {
	_, ok := r.names[name]
	return ok
}

func Resolve(name string) Address { return DefaultRegistry.Resolve(name) }
