//go:build unix

package cmd

import (
	"golang.org/x/sys/unix"
)

func init() {
	// SIGHUP is included so closing the terminal of a foreground fixture server or smoke run shuts down cleanly.
	shutdownSignals = append(shutdownSignals, unix.SIGTERM, unix.SIGQUIT, unix.SIGHUP)
}
