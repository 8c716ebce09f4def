package main

import "github.com/sadopc/reportory/internal/cli"

func main() {
	cli.Execute()
}
