package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-barry/pagebridge/core"
	"github.com/urfave/cli/v2"
)

var CheckCommand = &cli.Command{
	Name:  "check",
	Usage: "Validate the shell template against a sample page",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := core.LoadConfig(c.String("config"))

		resolver, err := core.NewResolver(config)
		if err != nil {
			fmt.Printf("⚠️  manifest: %v\n", err)
		}

		renderer, err := core.NewRenderer(config.TemplatesDir, resolver, false)
		if err != nil {
			fmt.Printf("❌ %s → parse error: %v\n", config.TemplatesDir, err)
			return cli.Exit("template failed to compile", 1)
		}

		page := core.Page{
			Component: "Check",
			Props:     core.Props{"check": "ok"},
			URL:       "/",
			Version:   core.NewVersioner(config).Version(),
		}
		data, err := core.ShellFor(config, resolver, page)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		var buf bytes.Buffer
		if err := renderer.Render(&buf, config.Template, data); err != nil {
			fmt.Printf("❌ %s → exec error: %v\n", config.Template, err)
			return cli.Exit("template failed to render", 1)
		}

		if !strings.Contains(buf.String(), `id="`+core.PageScriptID+`"`) {
			fmt.Printf("❌ %s → page data is never emitted; include {{ .Body }}\n", config.Template)
			return cli.Exit("template does not embed the page", 1)
		}

		fmt.Printf("✅ %s\n", config.Template)
		return nil
	},
}
