package main

import "github.com/forPelevin/roughcut/internal/cli"

func main() {
	cli.Main()
}
