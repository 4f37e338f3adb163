// # cmd/pyshape/main.go
package main

import (
	"os"

	"pyshape/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
