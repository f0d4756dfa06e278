package main

import "github.com/ppiankov/deskbridge/internal/cli"

func main() {
	cli.Execute()
}
