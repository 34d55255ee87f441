// calendar-server is the entry point for the natural-language calendar
// assistant: an HTTP server, a stdio MCP server, and a one-shot chat
// runner for smoke testing, all sharing one pipeline wiring.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jungfsg/Calender/internal/api"
	"github.com/jungfsg/Calender/internal/config"
	"github.com/jungfsg/Calender/internal/llm"
	"github.com/jungfsg/Calender/internal/logger"
	"github.com/jungfsg/Calender/internal/mcp"
	"github.com/jungfsg/Calender/internal/store"
	"github.com/jungfsg/Calender/internal/workflow"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	configFlag string
	rootCmd    = &cobra.Command{
		Use:   "calendar-server",
		Short: "Natural-language calendar assistant",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "config file path (default ~/.calender/config.yaml)")

	rootCmd.AddCommand(serveCmd(), mcpCmd(), chatCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// wire builds the shared pipeline stack from configuration. The provider
// is optional: a missing API key degrades to the deterministic fallbacks
// rather than refusing to start.
func wire(service string) (*workflow.Engine, store.CalendarStore, *config.Config, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, nil, err
	}
	log := logger.NewWithLevel(service, cfg.LogLevel)

	provider, err := llm.NewProvider(llm.Config{
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
		BaseURL:  cfg.LLMBaseURL,
		Timeout:  cfg.LLMTimeout,
	})
	if err != nil {
		log.Warn().Err(err).Msg("completion provider unavailable, using fallback classification only")
		provider = nil
	}

	cal, err := store.New(store.Config{
		Backend:  cfg.StoreBackend,
		DBPath:   cfg.DBPath,
		FilePath: cfg.EventFile,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening event store: %w", err)
	}

	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }
	engine := workflow.NewEngine(provider, cal, log, now)
	return engine, cal, cfg, nil
}

func serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cal, cfg, err := wire("calendar-server")
			if err != nil {
				return err
			}
			defer cal.Close()

			if port == 0 {
				port = cfg.HTTPPort
			}
			log := logger.NewWithLevel("calendar-server", cfg.LogLevel)
			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", port),
				Handler:      api.NewServer(engine, cal, log).Router(),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Int("port", port).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				log.Info().Msg("shutting down")
				shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutCtx)
			}
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		RunE: func(*cobra.Command, []string) error {
			engine, cal, _, err := wire("calendar-mcp")
			if err != nil {
				return err
			}
			defer cal.Close()

			srv := mcp.NewServer(mcp.ServerConfig{Engine: engine, Store: cal, Version: version})
			return mcp.ServeStdio(srv)
		},
	}
}

func chatCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Run one utterance through the pipeline and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cal, _, err := wire("calendar-chat")
			if err != nil {
				return err
			}
			defer cal.Close()

			utterance := ""
			for i, a := range args {
				if i > 0 {
					utterance += " "
				}
				utterance += a
			}

			st := engine.Process(cmd.Context(), utterance, nil)
			if asJSON {
				data, _ := json.MarshalIndent(st, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.Response)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full turn state as JSON")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
