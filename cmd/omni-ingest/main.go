package main

import (
	"omni-ingest/internal/cli"
)

func main() {
	cli.Execute()
}
