package main

import (
	"os"

	"registration-backend/internal/bootstrap"
	"registration-backend/internal/shared/config"
	"registration-backend/internal/shared/server"
	"registration-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("api.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.starting", map[string]any{
		"addr":         addr,
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"queue":        cfg.QueueBackend,
	})

	if err := app.Router.Run(addr); err != nil {
		telemetry.Error("api.server_error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
