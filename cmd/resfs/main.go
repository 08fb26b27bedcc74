package main

import (
	"embed"
	"io/fs"
	"os"

	"resfs/internal/cli"
	"resfs/internal/logging"
)

//go:embed all:payload
var payload embed.FS

var (
	logger = logging.GetLogger()
)

func main() {
	resources, err := fs.Sub(payload, "payload")
	if err != nil {
		logger.Error("Failed to open embedded payload: %v", err)
		os.Exit(1)
	}
	cli.Execute(resources)
}
