package main

import (
	"os"
	"path/filepath"

	"github.com/prbarcelon/cliproxy/internal/client"
)

// Every argument is forwarded, including anything that looks like a flag.
func main() {
	os.Exit(client.Run(filepath.Base(os.Args[0]), os.Args[1:]))
}
