package main

import "github.com/jonwraymond/pokedex/internal/cli"

func main() {
	cli.Execute()
}
