package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"swarmops-sim/internal/logging"
)

func main() {
	// Optional .env for local runs; absence is fine.
	_ = godotenv.Load()
	slog.SetDefault(logging.New())
	Execute()
}
