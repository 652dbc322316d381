// Package main is xformctl, a command line client for running
// transformation rules and inspecting schema documents offline.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
