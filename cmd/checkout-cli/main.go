// cmd/checkout-cli/main.go
package main

import (
	"os"

	zlog "github.com/rs/zerolog/log"

	"storefront/internal/pkg/logger"
)

func main() {
	logger.InitWithWriter(os.Stderr, "checkout-cli", os.Getenv("LOG_LEVEL"))
	if err := newRootCmd().Execute(); err != nil {
		zlog.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
