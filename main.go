package main

import "github.com/kozaktomas/face-sorter/cmd"

func main() {
	cmd.Execute()
}
