package main

import (
	"os"

	"github.com/zurustar/lemonscript/pkg/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
