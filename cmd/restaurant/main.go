// Command restaurant runs the order service, its kitchen worker and the
// operator tooling.
package main

import (
	"os"

	"github.com/Additional-Code/restaurant/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
