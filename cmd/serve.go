package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/gwastrend/internal/gwas"
	"github.com/KaramelBytes/gwastrend/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [files...]",
	Short: "Serve the prediction form, JSON API, trend downloads and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := resolveSource(args)
		if err != nil {
			return err
		}
		opt, err := loadOptions()
		if err != nil {
			return err
		}
		dir, err := gwas.ParseDirection(cfg.Direction)
		if err != nil {
			return err
		}
		addr := cfg.ServerAddr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		cache := gwas.NewCache(opt, logger)
		// Fail fast on missing or mismatched parts instead of on the first request.
		if _, err := cache.Get(cmd.Context(), src); err != nil {
			return err
		}
		srv, err := server.New(server.Config{
			Addr:   addr,
			Source: src,
			Defaults: server.Defaults{
				Trait:     cfg.DefaultTrait,
				Ancestry:  cfg.DefaultAncestry,
				Direction: dir,
			},
			Model:        modelOptions(0, false, 0),
			DatesAsYears: cfg.DatesAsYears,
		}, cache, logger)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Serving on %s\n", addr)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
}
