package main

import (
	"log"
	"os"

	"github.com/dmitrijs2005/passvault/internal/vaultctl"
)

func main() {
	app := vaultctl.NewApp()
	if err := app.Run(os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
