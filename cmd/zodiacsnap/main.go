package main

import "zodiac-snapshot/internal/cli"

func main() {
	cli.Execute()
}
