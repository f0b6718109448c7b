package main

import "github.com/vietddude/chaintrace/internal/cli"

func main() {
	cli.Execute()
}
