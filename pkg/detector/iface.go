package detector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

var (
	// ErrIfaceNotFound means the named interface does not exist
	ErrIfaceNotFound = errors.New("interface not found")
	// ErrNoIPv4 means the interface exists but has no IPv4 address
	ErrNoIPv4 = errors.New("interface has no IPv4 address")
)

// InterfaceStrategy reads the first IPv4 address bound to a named local
// network interface. Useful when the host has a routable address
// directly on an interface (no NAT).
type InterfaceStrategy struct {
	// Name is the interface name, e.g. "eth0"
	Name string
}

// Kind returns the strategy kind
func (s *InterfaceStrategy) Kind() string { return "interface" }

// Describe returns the interface name
func (s *InterfaceStrategy) Describe() string { return s.Name }

// Detect returns the first IPv4 address bound to the interface
func (s *InterfaceStrategy) Detect(_ context.Context) (string, error) {
	iface, err := net.InterfaceByName(s.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrIfaceNotFound, s.Name)
	}

	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("listing addresses for %q: %w", s.Name, err)
	}

	for _, addr := range addrs {
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		if prefix.Addr().Is4() {
			return prefix.Addr().String(), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoIPv4, s.Name)
}
