package main

import (
	"os"

	"github.com/urfave/cli/v2"

	disputedash "github.com/rollupops/disputedash"
)

func versionCmd(*cli.Context) error {
	disputedash.PrintVersion(os.Stdout)
	return nil
}
