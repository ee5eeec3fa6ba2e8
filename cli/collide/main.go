// Package main is the collide command itself.
package main

import (
	"log"
	"os"

	"go.viam.com/collide/cli"
)

func main() {
	app := cli.NewApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
