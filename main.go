package main

import "github.com/HerrChaos/obsidian-waka-box/cmd"

func main() {
	cmd.Execute()
}
