package cli

import (
	"fmt"
	"os"

	"github.com/go-barry/pagebridge/core"
	"github.com/urfave/cli/v2"
)

var buildAssets = core.Build

var BuildCommand = &cli.Command{
	Name:  "build",
	Usage: "Minify and fingerprint view sources into the dist directory",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := core.LoadConfig(c.String("config"))
		src, dist := config.SourceDir(), config.DistDir()

		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("view sources not found: %w", err)
		}

		fmt.Println("📦 Building:", src, "→", dist)
		result, err := buildAssets(src, dist, config.BuildEntries())
		if err != nil {
			return fmt.Errorf("failed to build assets: %w", err)
		}

		fmt.Println("🔧 Minified:", result.Minified)
		fmt.Println("📄 Copied:", result.Copied)
		fmt.Println("✅ Manifest written with", len(result.Manifest), "entries.")
		return nil
	},
}
