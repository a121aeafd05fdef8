package main

import "github.com/agroscan/agroscan/cmd"

func main() {
	cmd.Execute()
}
