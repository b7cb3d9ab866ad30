package main

import "pulsewatch/internal/cli"

func main() {
	cli.Execute()
}
