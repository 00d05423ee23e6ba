package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/ieco-lab/scarifSDM/pkg/cli"
)

func main() {
	// optional .env next to the binary, flags still win
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cli.Execute()
}
