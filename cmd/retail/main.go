// Command retail runs the retail sales preparation and modeling pipeline,
// either as an HTTP server or one view at a time.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
