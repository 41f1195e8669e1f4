package main

import "github.com/aceteam-ai/cpueff/cmd"

func main() {
	cmd.Execute()
}
