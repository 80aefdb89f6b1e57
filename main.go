package main

import "github.com/gantryhq/gantry/cmd/gantry"

func main() {
	gantry.Execute()
}
