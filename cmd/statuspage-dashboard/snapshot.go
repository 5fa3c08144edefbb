package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conradoqg/statuspage-dashboard/internal/model"
)

func newSnapshotCmd(gf *globalFlags) *cobra.Command {
	var (
		period   string
		provider string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch once and print the view model as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if period != "" {
				p, err := model.ParsePeriod(period)
				if err != nil {
					return err
				}
				cfg.Refresh.Period = p.Days()
			}

			ctrl := newController(cfg)
			defer ctrl.Stop()
			ctrl.SelectProvider(provider)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := ctrl.RefreshNow(ctx); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ctrl.View())
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Analysis period: 7|30|90 (overrides config)")
	cmd.Flags().StringVar(&provider, "provider", "", "Only show incidents of this provider")
	return cmd
}
