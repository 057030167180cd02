package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"talowa-referral/internal/data/repository"
	"talowa-referral/internal/usecase"
	"talowa-referral/pkg/cache"
	"talowa-referral/pkg/database"
	"talowa-referral/pkg/utils"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// referralctl is the operator tool that replaced the one-off consistency
// fix scripts: the same reconciler the API exposes, runnable from a shell.
func main() {
	root := &cobra.Command{
		Use:          "referralctl",
		Short:        "TALOWA referral engine operator tool",
		SilenceUsage: true,
	}

	root.AddCommand(
		newReconcileCmd(),
		newRecountCmd(),
		newValidateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap wires repos and services the same way the API server does,
// minus the HTTP layer.
func bootstrap() (context.Context, context.CancelFunc, *usecase.Service, func(), error) {
	config, err := utils.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}

	rdb, err := cache.ConnectRedis(config.Redis)
	if err != nil {
		db.Close()
		return nil, nil, nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := repository.NewRepository(db, logger)
	service := usecase.NewService(repos, config, rdb, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cleanup := func() {
		logger.Sync()
		if rdb != nil {
			rdb.Close()
		}
		db.Close()
	}

	return ctx, stop, service, cleanup, nil
}

func newReconcileCmd() *cobra.Command {
	reconcile := &cobra.Command{
		Use:   "reconcile",
		Short: "Detect and repair denormalization drift",
	}

	reconcile.AddCommand(
		&cobra.Command{
			Use:   "all",
			Short: "Reconcile every user record",
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, stop, service, cleanup, err := bootstrap()
				if err != nil {
					return err
				}
				defer cleanup()
				defer stop()

				report, err := service.Reconciler.ReconcileAll(ctx)
				if err != nil {
					return err
				}

				fmt.Printf("scanned:              %d\n", report.Scanned)
				fmt.Printf("codes repaired:       %d\n", report.CodesRepaired)
				fmt.Printf("reservations created: %d\n", report.ReservationsCreated)
				fmt.Printf("conflicts resolved:   %d\n", report.ConflictsResolved)
				fmt.Printf("counts corrected:     %d\n", report.CountsCorrected)
				fmt.Printf("roles promoted:       %d\n", report.RolesPromoted)
				fmt.Printf("registry rewrites:    %d\n", report.RegistryRewrites)
				fmt.Printf("orphan referrers:     %d\n", report.OrphanReferrers)
				fmt.Printf("errors:               %d\n", report.Errors)
				fmt.Printf("duration:             %s\n", report.Duration)
				return nil
			},
		},
		&cobra.Command{
			Use:   "user <user-id>",
			Short: "Reconcile a single user record",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid user ID %q", args[0])
				}

				ctx, stop, service, cleanup, err := bootstrap()
				if err != nil {
					return err
				}
				defer cleanup()
				defer stop()

				outcome, err := service.Reconciler.ReconcileOne(ctx, id)
				if err != nil {
					return err
				}

				fmt.Println(outcome)
				return nil
			},
		},
	)

	return reconcile
}

func newRecountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount <user-id>",
		Short: "Recompute direct and team counts from stored edges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user ID %q", args[0])
			}

			ctx, stop, service, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			defer stop()

			stats, err := service.Stats.Recount(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("direct: %d\nteam:   %d\n", stats.DirectCount, stats.TeamCount)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <code>",
		Short: "Check a referral code and show its owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop, service, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			defer stop()

			result, err := service.Lookup.ValidateReferralCode(ctx, args[0])
			if err != nil {
				return err
			}

			if !result.Valid {
				fmt.Printf("%s: invalid\n", args[0])
				return nil
			}
			fmt.Printf("%s: valid (owner: %s)\n", result.Code, result.OwnerName)
			return nil
		},
	}
}
