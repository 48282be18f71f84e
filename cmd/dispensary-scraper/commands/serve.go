package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/maltedev/dispensary-scraper/internal/api"
	"github.com/maltedev/dispensary-scraper/internal/database"
	"github.com/maltedev/dispensary-scraper/internal/storage"
)

var (
	servePort   string
	serveFromDB bool
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides server.port).")
	serveCmd.Flags().BoolVar(&serveFromDB, "from-db", false, "Serve the catalog stored in Postgres instead of the output file.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--port <port>] [--from-db]",
	Short: "Serves the last written catalog over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		ctx := cmd.Context()

		var source api.CatalogSource = storage.NewCatalogFile(cfg.Output.Path)
		if serveFromDB {
			db, err := database.New(ctx, database.Config{
				URL:      cfg.DatabaseURL(),
				MaxConns: cfg.Database.MaxConns,
			})
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			source = database.NewCatalogRepository(db)
		}

		handlers := api.NewHandlers(source, logger)

		server := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      api.NewRouter(handlers, cfg.Server.AllowedOrigins),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", "error", err)
			}
		}()

		logger.Info("server starting", "port", cfg.Server.Port, "from_db", serveFromDB)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}

		logger.Info("server stopped")
		return nil
	},
}
