package main

import "github.com/vietddude/armctl/internal/cli"

func main() {
	cli.Execute()
}
