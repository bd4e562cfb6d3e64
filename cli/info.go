package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-barry/pagebridge/core"
	"github.com/urfave/cli/v2"
)

var InfoCommand = &cli.Command{
	Name:  "info",
	Usage: "Print configuration, asset counts and the current asset version",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := core.LoadConfig(c.String("config"))

		fmt.Println("🌱 Environment:", config.Environment)
		fmt.Println("📁 Serving From:", config.AssetDir())
		fmt.Println("🧩 Entrypoint:", config.Entrypoint)
		fmt.Println("🔁 Flash Messages Enabled:", config.UseFlashMessages)
		fmt.Println("🔁 Flash Errors Enabled:", config.UseFlashErrors)
		fmt.Println("🔁 Debug Headers Enabled:", config.DebugHeaders)
		fmt.Println()

		fmt.Println("🗂️  Source Files:", countFiles(config.SourceDir()))
		fmt.Println("📦 Built Files:", countFiles(config.DistDir()))

		if m, err := core.LoadManifest(config.ManifestPath()); err == nil {
			fmt.Println("🧾 Manifest Entries:", len(m))
		} else {
			fmt.Println("🧾 Manifest Entries: none")
		}

		fmt.Println("🏷️  Version:", core.NewVersioner(config).Version())
		return nil
	},
}

func countFiles(dir string) int {
	count := 0
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	return count
}
