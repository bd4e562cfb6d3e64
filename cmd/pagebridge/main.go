package main

import (
	"log"
	"os"

	pbcli "github.com/go-barry/pagebridge/cli"
	clilib "github.com/urfave/cli/v2"
)

func newApp() *clilib.App {
	return &clilib.App{
		Name:  "pagebridge",
		Usage: "Server-rendered shell and page payloads for client-side views",
		Commands: []*clilib.Command{
			pbcli.InitCommand,
			pbcli.DevCommand,
			pbcli.ProdCommand,
			pbcli.BuildCommand,
			pbcli.CleanCommand,
			pbcli.CheckCommand,
			pbcli.InfoCommand,
		},
	}
}

func runApp(args []string) error {
	return newApp().Run(args)
}

func main() {
	if err := runApp(os.Args); err != nil {
		log.Fatal(err)
	}
}
