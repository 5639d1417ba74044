//go:build tinygo

package internal

import "errors"

func interfaceIndex(name string) (int, error) {
	return 0, errors.New("interface lookup not implemented on TinyGo")
}
