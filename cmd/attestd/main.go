// Command attestd runs the SGX remote-attestation verification service,
// and offers a one-shot offline verification subcommand.
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
