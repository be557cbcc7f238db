package main

import "github.com/hardliner66/MageBattle/internal/cli"

func main() {
	cli.Execute()
}
