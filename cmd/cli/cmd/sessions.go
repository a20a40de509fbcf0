// Package cmd - session administration commands
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tradein-engine/core/catalog"
	"tradein-engine/core/session"
	"tradein-engine/core/types"
	"tradein-engine/internal/config"
	"tradein-engine/store"
)

var listStatus string

// sessionsCmd groups session administration subcommands
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Administer offer sessions",
}

// sessionsCleanupCmd sweeps lapsed sessions
var sessionsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Mark lapsed sessions as expired",
	Long: `Run the expired-session sweep once against the configured store.
Safe to run repeatedly; a second consecutive run affects nothing.`,
	RunE: runSessionsCleanup,
}

// sessionsListCmd lists sessions
var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List offer sessions",
	RunE:  runSessionsList,
}

func init() {
	sessionsListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	sessionsCmd.AddCommand(sessionsCleanupCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
}

func openManager() (*session.Manager, store.SessionStore, error) {
	cfg := config.Get()
	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	// The sweep and listing never touch the catalog
	manager := session.NewManager(st, catalog.NewMemory(), cfg.Session.Window())
	return manager, st, nil
}

func runSessionsCleanup(cmd *cobra.Command, args []string) error {
	manager, st, err := openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	count, err := manager.CleanupExpired(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Expired %d session(s)\n", count)
	return nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	manager, st, err := openManager()
	if err != nil {
		return err
	}
	defer st.Close()

	filter := store.Filter{}
	if listStatus != "" {
		status, ok := types.ParseStatus(listStatus)
		if !ok {
			return fmt.Errorf("unknown status: %q", listStatus)
		}
		filter.Status = status
	}

	sessions, err := manager.List(context.Background(), filter)
	if err != nil {
		return err
	}

	for _, s := range sessions {
		fmt.Printf("%s  %-10s v%-3d %s/%s  expires %s\n",
			s.ID, s.Status, s.Version, s.ProductID, s.VariantID,
			s.ExpiresAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("%d session(s)\n", len(sessions))
	return nil
}
