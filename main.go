package main

import "example.com/backstage/services/interactions/cmd"

func main() {
	cmd.Execute()
}
