package main

import "loxvm/cmd"

func main() {
	cmd.App().Execute()
}
