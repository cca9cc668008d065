package main

import "funee/cmd"

func main() {
	cmd.Execute()
}
