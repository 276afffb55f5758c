package main

import "crown-voting-backend/cmd"

func main() {
	cmd.Run()
}
