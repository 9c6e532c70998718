package main

import (
	"os"

	"github.com/tansive/ideconnector/internal/cli"
	"github.com/tansive/ideconnector/internal/common/logtrace"
)

func init() {
	// diagnostics go to stderr, stdout carries the import log
	logtrace.InitLoggerWithWriter(os.Stderr)
	level := os.Getenv("IDECONNECTOR_LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	logtrace.SetLevel(level)
}

func main() {
	cli.Execute()
}
