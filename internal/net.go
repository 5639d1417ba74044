//go:build !tinygo

package internal

import "net"

// interfaceIndex returns the kernel index of the named network interface.
func interfaceIndex(name string) (int, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, err
	}
	return iface.Index, nil
}
