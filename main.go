package main

import "github.com/snapxhq/snapbot/cmd"

func main() {
	cmd.Execute()
}
