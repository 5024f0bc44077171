package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finitefield.org/store-admin/internal/admin/catalog"
	"finitefield.org/store-admin/internal/admin/clipboard"
	"finitefield.org/store-admin/internal/admin/observability"
	"finitefield.org/store-admin/internal/admin/stores"
)

// Dependencies are the collaborators the command cannot build from flags.
type Dependencies struct {
	Clipboard clipboard.Writer
	// Source overrides the page source built from --backend.
	Source catalog.PageSource
}

type rootFlags struct {
	Store     string
	StoreName string
	Backend   string
	Token     string
	Copy      bool
	Timeout   time.Duration
	MaxPages  int
	LogLevel  string
}

func newRootCommand(deps Dependencies) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "productlist",
		Short:         "Print the shareable product list of a store.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := runProductList(cmd, deps, flags)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "erro: %s\n", catalog.UserMessage(err))
			}
			return err
		},
	}

	cmd.Flags().StringVar(&flags.Store, "store", "", "Store ID to load (required)")
	cmd.Flags().StringVar(&flags.StoreName, "store-name", "", "Store name used in the shipping line")
	cmd.Flags().StringVar(&flags.Backend, "backend", "", "Backend base URL; the built-in demo data is used when empty")
	cmd.Flags().StringVar(&flags.Token, "token", "", "Bearer token sent to the backend")
	cmd.Flags().BoolVar(&flags.Copy, "copy", false, "Also copy the list to the system clipboard")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 30*time.Second, "Overall load timeout")
	cmd.Flags().IntVar(&flags.MaxPages, "max-pages", 1000, "Maximum number of pages to request")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "warn", "Log level of the JSON log written to stderr")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

func runProductList(cmd *cobra.Command, deps Dependencies, flags rootFlags) error {
	logger, err := observability.NewLoggerTo(flags.LogLevel, "stderr")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	source, err := resolveSource(deps, flags)
	if err != nil {
		return err
	}

	fetcher := catalog.NewFetcher(source,
		catalog.WithLogger(logger),
		catalog.WithMaxPages(flags.MaxPages),
	)
	listing := catalog.NewListing(catalog.ListingDeps{
		Loader: fetcher,
		Logger: logger,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flags.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.Timeout)
		defer cancel()
	}

	snap, err := listing.Refresh(ctx, flags.Token, flags.Store, flags.StoreName)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), snap.Text)

	if flags.Copy {
		writer := deps.Clipboard
		if writer == nil {
			writer = clipboard.System{}
		}
		if err := listing.CopyToClipboard(ctx, writer); err != nil {
			logger.Warn("clipboard copy failed", zap.Error(err))
			fmt.Fprintf(cmd.ErrOrStderr(), "aviso: não foi possível copiar para a área de transferência: %v\n", err)
			return nil
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Lista copiada para a área de transferência.")
	}
	return nil
}

func resolveSource(deps Dependencies, flags rootFlags) (catalog.PageSource, error) {
	if deps.Source != nil {
		return deps.Source, nil
	}
	backend := strings.TrimSpace(flags.Backend)
	if backend == "" {
		return stores.NewStaticService(), nil
	}
	service, err := stores.NewHTTPService(backend, &http.Client{Timeout: flags.Timeout})
	if err != nil {
		return nil, errors.Join(errors.New("productlist: invalid --backend"), err)
	}
	return service.PageSource(), nil
}
