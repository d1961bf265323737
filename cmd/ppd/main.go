package main

import (
	"os"

	"github.com/TarqGaur/Perfect-Package-Downloader/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
