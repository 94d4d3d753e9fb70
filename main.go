package main

import "github.com/famvault/cli/cmd"

func main() {
	cmd.Execute()
}
