package main

import "github.com/tripped/ccscript-legacy/cmd"

func main() {
	cmd.Execute()
}
