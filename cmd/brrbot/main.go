package main

import "github.com/brrbot/brrbot/internal/cli"

func main() {
	cli.Execute()
}
