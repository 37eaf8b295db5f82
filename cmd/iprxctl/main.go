// cmd/iprxctl/main.go
package main

import (
	"fmt"
	"os"

	"github.com/civicledger/IPRx-Core/internal/cli"
)

// Set with -ldflags at build time.
var version = "dev"

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
