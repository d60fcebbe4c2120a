package main

import (
	"github.com/profviz/profviz/internal/cmd"
)

func main() {
	cmd.Execute()
}
