package main

import "github.com/MeKo-Tech/bydelskart/internal/cmd"

func main() {
	cmd.Execute()
}
