package main

import "github.com/davarch/notarize/cmd/notarize/cli"

func main() {
	cli.Execute()
}
