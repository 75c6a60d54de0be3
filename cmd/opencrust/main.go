// Command opencrust runs the OpenCrust gateway: a WebSocket front door
// onto a sandboxed plugin runtime, a persistent session store, and a
// heartbeat scheduler that can re-enter a conversation on its own.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
