//go:build !unix

package main

import "os"

func notifyInterrupt(ch chan<- os.Signal) {}
