// Command sqlmap inspects compiled mapped methods and checks configured
// store groups.
package main

import (
	"os"

	"github.com/Konsultn-Engineering/sqlmap/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
