package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-campaigns/campaign"
	"github.com/saiset-co/sai-campaigns/config"
	"github.com/saiset-co/sai-campaigns/health"
	"github.com/saiset-co/sai-campaigns/service"
	"github.com/saiset-co/sai-campaigns/transient"
	"github.com/saiset-co/sai-campaigns/utils"
)

const defaultConfigPath = "config.yml"

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "campaignsd",
		Short:         "Campaign view and suppression state service.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newInspectCmd(&configPath),
		newVersionCmd(),
	)

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.NewService(cmd.Context(), *configPath)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}

			if err := svc.Start(); err != nil {
				svc.Container().Logger.Error("Failed to start service", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newInspectCmd(configPath *string) *cobra.Command {
	var showCounters bool

	inspect := &cobra.Command{
		Use:   "inspect",
		Short: "Print stored campaign or client state as JSON",
	}

	inspect.PersistentFlags().BoolVar(&showCounters, "counters", false, "include transient read/write counters")

	inspect.AddCommand(
		&cobra.Command{
			Use:   "campaign <client_id> <campaign_id>",
			Short: "Print the campaign record for a client",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepository(cmd, *configPath, showCounters, "campaign", func(ctx context.Context, repo *campaign.Repository) (interface{}, error) {
					return repo.GetCampaignData(ctx, args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "client <client_id>",
			Short: "Print the client record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withRepository(cmd, *configPath, showCounters, "client", func(ctx context.Context, repo *campaign.Repository) (interface{}, error) {
					return repo.GetClientData(ctx, args[0])
				})
			},
		},
	)

	return inspect
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := utils.Marshal(health.ReadBuildInfo())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return err
		},
	}
}

// withRepository opens the configured cache and store, runs read and prints
// {"<field>": result} to the command's output.
func withRepository(cmd *cobra.Command, configPath string, showCounters bool, field string, read func(context.Context, *campaign.Repository) (interface{}, error)) error {
	ctx := cmd.Context()

	configManager, err := config.NewConfigurationManager(ctx, configPath)
	if err != nil {
		return err
	}

	storage, err := service.NewStorage(ctx, configManager)
	if err != nil {
		return err
	}

	if err := storage.Store.Start(); err != nil {
		return err
	}
	defer func() { _ = storage.Store.Stop() }()

	if err := storage.Cache.Start(); err != nil {
		return err
	}
	defer func() { _ = storage.Cache.Stop() }()

	counters := transient.NewCounters(time.Now())
	result, err := read(ctx, campaign.NewRepository(storage.Transient, counters))
	if err != nil {
		return err
	}
	counters.Finish(time.Now())

	payload := map[string]interface{}{field: result}
	if showCounters {
		payload["debug"] = counters.Snapshot()
	}

	body, err := utils.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return err
}
