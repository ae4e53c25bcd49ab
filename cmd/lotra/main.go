package main

import "github.com/MeKo-Tech/lotra/cmd/lotra/cmd"

func main() {
	cmd.Execute()
}
