package main

import "sniffstore/cmd"

func main() {
	cmd.Execute()
}
