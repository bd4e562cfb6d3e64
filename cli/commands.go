package cli

import (
	"github.com/go-barry/pagebridge"
	"github.com/go-barry/pagebridge/core"

	"github.com/urfave/cli/v2"
)

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "path to the config file",
	Value:   pagebridge.ConfigFile,
}

var portFlag = &cli.IntFlag{
	Name:    "port",
	Aliases: []string{"p"},
	Usage:   "port to listen on",
	Value:   8080,
	EnvVars: []string{"PORT"},
}

func serveAction(env string) cli.ActionFunc {
	return func(c *cli.Context) error {
		pagebridge.Start(pagebridge.RuntimeConfig{
			Env:        env,
			ConfigPath: c.String("config"),
			Port:       c.Int("port"),
		})
		return nil
	}
}

var DevCommand = &cli.Command{
	Name:   "dev",
	Usage:  "Serve unbundled view sources with live reload",
	Flags:  []cli.Flag{configFlag, portFlag},
	Action: serveAction(core.EnvDevelopment),
}

var ProdCommand = &cli.Command{
	Name:   "prod",
	Usage:  "Serve the built assets from the dist directory",
	Flags:  []cli.Flag{configFlag, portFlag},
	Action: serveAction(core.EnvProduction),
}
