// Package cli is the storecount command tree.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/registry"
	"github.com/JINL2/mystorecluade-sub001/internal/workflow"
)

// CatalogAdmin maintains the stores, products and stock the embedded backend
// resolves items against. Remote backends manage their own catalog and leave
// it nil.
type CatalogAdmin interface {
	UpsertStore(ctx context.Context, s *domain.Store) error
	UpsertProduct(ctx context.Context, companyID string, p *domain.Product) error
	SetStock(ctx context.Context, storeID string, key domain.ItemKey, quantity int) error
	UpsertShipment(ctx context.Context, s *domain.Shipment) error
}

// App holds what the commands run against.
type App struct {
	Backend  app.Backend
	Admin    CatalogAdmin
	Registry registry.Registry
	Guard    registry.SubmitGuard
	Logger   *slog.Logger
	LogLevel *slog.LevelVar

	UserID    string
	CompanyID string
	StoreID   string

	// ServeAPIKey is required from RPC clients by `serve` when set.
	ServeAPIKey string
	ServeAddr   string

	// IsInteractive reports whether prompts can be shown. Nil means never.
	IsInteractive func() bool
	// NewSubmitUI overrides the interactive submit prompts.
	NewSubmitUI func(cmd *cobra.Command) submitUI
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

func (a *App) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Logger
}

func (a *App) guard() registry.SubmitGuard {
	if a.Guard == nil {
		a.Guard = registry.NewLocalGuard()
	}
	return a.Guard
}

func (a *App) registry() registry.Registry {
	if a.Registry == nil {
		a.Registry = registry.NewMemoryStore()
	}
	return a.Registry
}

// page opens the session page controller for s as the current user.
func (a *App) page(s *domain.Session) *workflow.Page {
	return workflow.NewPage(workflow.Config{
		Client:  a.Backend,
		Merger:  mergeCoordinator(a),
		Guard:   a.guard(),
		Logger:  a.logger(),
		Session: s,
		UserID:  a.UserID,
	})
}

func mergeCoordinator(a *App) *workflow.MergeCoordinator {
	return workflow.NewMergeCoordinator(a.Backend, a.registry(), a.logger())
}

// NewRootCmd creates the top-level "storecount" command and registers all
// subcommands against the provided App.
func NewRootCmd(a *App) *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "storecount",
		Short:         "Shared stock counting and receiving sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose && a.LogLevel != nil {
				a.LogLevel.Set(slog.LevelDebug)
			}
		},
	}
	root.PersistentFlags().StringVar(&a.UserID, "user", a.UserID, "User ID to act as")
	root.PersistentFlags().StringVar(&a.CompanyID, "company", a.CompanyID, "Company ID")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		newSessionCmd(a),
		newProductCmd(a),
		newStoreCmd(a),
		newShipmentCmd(a),
		newServeCmd(a),
	)
	return root
}
