package main

import "github.com/opsdash/materializer/cmd/materializer/cmd"

func main() {
	cmd.Execute()
}
