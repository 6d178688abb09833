// Package main provides the entry point for the threadsum CLI.
package main

import (
	"github.com/colthorp/threadsum-go/internal/cli"
)

func main() {
	cli.Execute()
}
