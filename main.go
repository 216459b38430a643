package main

import "github.com/jmehdipour/reminder-dispatch/cmd"

func main() {
	cmd.Execute()
}
