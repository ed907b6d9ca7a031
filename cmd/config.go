package main

import (
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/rollupops/disputedash/config"
)

func configCmd(*cli.Context) error {
	defaultConfig := strings.Builder{}
	defaultConfig.WriteString(config.DefaultVars)
	defaultConfig.WriteString(config.DefaultValues)

	_, err := os.Stdout.WriteString(defaultConfig.String())
	return err
}
