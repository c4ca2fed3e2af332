package main

import "pushit/cmd"

func main() {
	cmd.Execute()
}
