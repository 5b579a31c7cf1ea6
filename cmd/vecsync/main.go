package main

import (
	"os"

	"github.com/custodia-labs/vecsync/internal/adapters/driving/cli"
)

func main() {
	os.Exit(cli.Execute())
}
