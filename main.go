package main

import "github.com/samsaffron/term-tutor/cmd"

func main() {
	cmd.Execute()
}
