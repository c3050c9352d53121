package main

import "github.com/oshokin/vm-maintenance/cmd/vm-maintenance/cmd"

func main() {
	cmd.Execute()
}
