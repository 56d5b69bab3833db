// Package main is the entry point for the mdx2dax CLI binary.
package main

import (
	"os"

	cli "mdx2dax/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
