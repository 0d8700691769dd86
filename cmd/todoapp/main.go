package main

import (
	"os"

	"todoapp/cmd/todoapp/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
