package main

import "github.com/tracelight/agent/internal/agent/cli"

func main() {
	cli.Execute()
}
