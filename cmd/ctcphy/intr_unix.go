//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyInterrupt relays SIGUSR1 to ch. The signal stands in for the PHY
// interrupt line, e.g. sent by a GPIO watcher.
func notifyInterrupt(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGUSR1)
}
