package cli

import (
	"fmt"
	"os"

	"github.com/go-barry/pagebridge/core"
	"github.com/urfave/cli/v2"
)

var CleanCommand = &cli.Command{
	Name:  "clean",
	Usage: "Delete the built assets directory",
	Flags: []cli.Flag{configFlag},
	Action: func(c *cli.Context) error {
		config := core.LoadConfig(c.String("config"))
		target := config.DistDir()

		info, err := os.Stat(target)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("🧼 Nothing to clean:", target)
				return nil
			}
			return fmt.Errorf("failed to access path: %w", err)
		}

		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", target)
		}

		fmt.Println("🧹 Cleaning:", target)
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to clean dist: %w", err)
		}

		fmt.Println("✅ Done.")
		return nil
	},
}
