package main

import "github.com/floeit/floedash/cmd/floedash/cmd"

func main() {
	cmd.Execute()
}
