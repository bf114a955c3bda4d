package main

import (
	"os"

	"github.com/edgecomet/seoeditor/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
