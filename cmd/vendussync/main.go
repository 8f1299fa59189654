package main

import (
	"log"

	"github.com/iurnickita/vendussync/cmd/vendussync/cmd"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	return cmd.NewRootCmd().Execute()
}
