package main

import (
	"surgesim/cmd"
)

func main() {
	cmd.Execute()
}
