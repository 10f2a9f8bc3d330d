package main

import "github.com/kozaktomas/visionauth/cmd"

func main() {
	cmd.Execute()
}
