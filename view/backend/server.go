// Package backend serves a view service over REST.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ainvaltin/httpsrv"
	"github.com/alphabill-org/txplanner/logger"
	"github.com/alphabill-org/txplanner/view"
	"github.com/alphabill-org/txplanner/view/boltstore"
	"github.com/rs/zerolog"
)

type Config struct {
	ServerAddr string
	DbFile     string
	Logger     zerolog.Logger
}

// NewHandler returns the REST API handler of the view service.
func NewHandler(service view.Client, log zerolog.Logger) http.Handler {
	api := &viewRestAPI{Service: service, rw: &ResponseWriter{Log: log}}
	return api.Router()
}

// Run serves the notes of the bolt database in DbFile until ctx is
// cancelled.
func Run(ctx context.Context, config *Config) error {
	store, err := boltstore.New(config.DbFile)
	if err != nil {
		return fmt.Errorf("failed to get storage: %w", err)
	}
	defer store.Close()

	log := config.Logger.With().Str(logger.ModuleKey, "view-backend").Logger()
	server := http.Server{
		Addr:              config.ServerAddr,
		Handler:           NewHandler(store, log),
		ReadTimeout:       3 * time.Second,
		ReadHeaderTimeout: time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	height, err := store.Do().GetHeight()
	if err != nil {
		return fmt.Errorf("reading synchronized height: %w", err)
	}
	log.Info().Str("addr", config.ServerAddr).Uint64("height", height).Msg("starting view backend")
	return httpsrv.Run(ctx, server, httpsrv.ShutdownTimeout(5*time.Second))
}
