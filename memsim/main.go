package main

import "github.com/sarchlab/memsim/memsim/cmd"

func main() {
	cmd.Execute()
}
