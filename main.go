package main

import (
	"log"

	"github.com/huntworks/hunt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
