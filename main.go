package main

import "pixwap/cmd"

func main() {
	cmd.Execute()
}
