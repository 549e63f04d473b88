package main

import "fivebyfive/internal/cli"

func main() {
	cli.Execute()
}
