package main

import (
	"os"

	"soc-console/internal/console/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
