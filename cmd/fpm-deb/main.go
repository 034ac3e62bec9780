package main

import "github.com/EffectiveRange/packaging-tools/cmd"

func main() {
	cmd.Execute(cmd.NewFpmDebCommand())
}
