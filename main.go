package main

import (
	"os"

	"github.com/peshell/pesh/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
