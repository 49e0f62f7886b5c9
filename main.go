package main

import "github.com/nakari-agent/server/cmd"

func main() {
	cmd.Execute()
}
