package main

import "github.com/tatoodenda/backend/cmd"

func main() {
	cmd.Start()
}
