package main

import "github.com/xiaot623/gogo/nexus/internal/commands"

func main() {
	commands.Execute()
}
