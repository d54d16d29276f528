// Command estates manages property owners and their listings.
package main

import (
	"os"

	"github.com/mesh-intelligence/estates/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
