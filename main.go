package main

import "github.com/mbolis/quick-form/cmd"

func main() {
	cmd.Execute()
}
