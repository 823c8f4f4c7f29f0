package main

import "tracksvc/cmd"

func main() {
	cmd.Execute()
}
