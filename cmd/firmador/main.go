package main

import "github.com/gobdigital/firmador/internal/cli"

func main() {
	cli.Execute()
}
