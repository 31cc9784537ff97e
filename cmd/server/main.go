package main

import "task-tracker-api/internal/cli"

func main() {
	cli.Execute()
}
