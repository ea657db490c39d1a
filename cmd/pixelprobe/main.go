package main

import "github.com/pixelprobe/pixelprobe/cmd/pixelprobe/commands"

func main() {
	commands.Execute()
}
