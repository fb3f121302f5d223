package main

import (
	"os"

	"github.com/Harshitk-cp/mashaaer/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
