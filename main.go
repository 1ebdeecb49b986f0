package main

import "agent-grid-rewards/cli"

func main() {
	cli.Execute()
}
