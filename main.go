package main

import (
	"github.com/ngld/webbundle/cmd"
)

func main() {
	cmd.Execute()
}
