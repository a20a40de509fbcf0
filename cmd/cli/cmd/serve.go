// Package cmd - serve command
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tradein-engine/api"
	"tradein-engine/core/catalog"
	"tradein-engine/core/catalog/hclfile"
	"tradein-engine/core/session"
	"tradein-engine/internal/config"
	"tradein-engine/internal/logging"
	"tradein-engine/store"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the offer session HTTP server",
	Long: `Start the HTTP API serving the trade-in wizard and the admin
back-office.

Examples:
  tradein-engine serve
  tradein-engine serve --addr :9090
  tradein-engine serve --config ./tradein.json`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	manager := session.NewManager(st, cat, cfg.Session.Window())
	server := api.NewServer(Version, manager)

	logging.Info("starting server",
		zap.String("addr", addr),
		zap.String("store", cfg.Store.Backend),
		zap.Duration("session_window", cfg.Session.Window()))

	return server.ListenAndServe(addr)
}

// loadCatalog loads the HCL catalog when configured, otherwise starts
// with an empty catalog fed by the admin surface.
func loadCatalog(cfg *config.Config) (*catalog.Memory, error) {
	if cfg.Catalog.Path == "" {
		return catalog.NewMemory(), nil
	}
	if _, err := os.Stat(cfg.Catalog.Path); os.IsNotExist(err) {
		logging.Warn("catalog file not found, starting empty",
			zap.String("path", cfg.Catalog.Path))
		return catalog.NewMemory(), nil
	}

	cat, err := hclfile.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	products, questions, defects, accessories := cat.Counts()
	logging.Info("catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("products", products),
		zap.Int("questions", questions),
		zap.Int("defects", defects),
		zap.Int("accessories", accessories))
	return cat, nil
}
