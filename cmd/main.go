package main

import (
	"os"

	"github.com/urfave/cli/v2"

	disputedash "github.com/rollupops/disputedash"
	"github.com/rollupops/disputedash/config"
	"github.com/rollupops/disputedash/log"
)

const appName = "disputedash"

var (
	configFileFlag = cli.StringSliceFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration file(s)",
		Required: false,
	}
	saveConfigFlag = cli.StringFlag{
		Name:     config.FlagSaveConfigPath,
		Aliases:  []string{"s"},
		Usage:    "Save final configuration into the indicated path (name: " + config.SaveConfigFileName + ")",
		Required: false,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Version = disputedash.Version
	app.Commands = []*cli.Command{
		{
			Name:   "version",
			Usage:  "Application version and build",
			Action: versionCmd,
		},
		{
			Name:   "config",
			Usage:  "Print the default configuration",
			Action: configCmd,
		},
		{
			Name:   "run",
			Usage:  "Run the dashboard server",
			Action: start,
			Flags:  []cli.Flag{&configFileFlag, &saveConfigFlag},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
