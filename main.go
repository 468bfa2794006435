package main

import "github.com/ridoystarlord/pqorm/cmd"

func main() {
	cmd.Execute()
}
