package main

import (
	_ "embed"
	"strings"

	"go.uber.org/zap"

	"github.com/gmp-id/gmpcms/internal/cli"
	"github.com/gmp-id/gmpcms/internal/logging"
)

//go:embed VERSION
var versionFile string

var executeCLI = cli.Execute

func run() error {
	return executeCLI(strings.TrimSpace(versionFile))
}

func main() {
	if err := run(); err != nil {
		logging.Fatal("gmpcms execution failed", zap.Error(err))
	}
}
