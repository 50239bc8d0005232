package main

import "github.com/planet-dev/planet/internal/cli"

func main() {
	cli.Execute()
}
