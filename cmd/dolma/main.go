package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dolma/internal/app"
	"dolma/internal/tui"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

func loadConfig(cmd *cobra.Command) (app.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = app.DefaultConfigPath()
	}
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.BackendURL = backend
	} else if env := os.Getenv("DOLMA_BACKEND_URL"); env != "" {
		cfg.BackendURL = env
	}
	if noLoc, _ := cmd.Flags().GetBool("no-location"); noLoc {
		cfg.LocationEnabled = false
	}
	return cfg, nil
}

func main() {
	root := &cobra.Command{
		Use:     "dolma",
		Short:   "DOLMA - your personal assistant, in the terminal",
		Long:    "DOLMA is a terminal client for the DOLMA assistant backend.\n\nRun without arguments for the interactive interface.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go func() {
				sig := make(chan os.Signal, 1)
				signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
				<-sig
				cancel()
			}()

			// Pick up hat changes written by other running clients.
			go func() {
				if err := application.Prefs.Watch(ctx); err != nil {
					application.Logger.Warn("preference watch stopped", map[string]interface{}{"error": err.Error()})
				}
			}()

			return tui.Run(application)
		},
	}
	root.PersistentFlags().String("config", "", "path to config file")
	root.PersistentFlags().String("backend", "", "backend base URL (overrides config)")
	root.Flags().Bool("no-location", false, "skip location acquisition")

	goalsCmd := &cobra.Command{
		Use:   "goals",
		Short: "Print the goal list and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Goals.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("%s", app.UserFacingError(err))
			}
			goals := application.Goals.Goals()
			if len(goals) == 0 {
				fmt.Println("No goals yet.")
				return nil
			}
			for _, g := range goals {
				marker := " "
				switch g.Status {
				case app.GoalStatusCompleted:
					marker = "✓"
				case app.GoalStatusArchived:
					marker = "-"
				}
				fmt.Printf("%s %s  (%s)\n", marker, g.Title, app.FormatGoalProgress(g))
			}
			return nil
		},
	}

	hatCmd := &cobra.Command{
		Use:   "hat [variant]",
		Short: "Show or set the avatar hat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			if len(args) == 0 {
				current := application.Prefs.Read()
				for _, h := range app.HatLibrary {
					marker := " "
					if h.ID == current {
						marker = "•"
					}
					fmt.Printf("%s %s  %s\n", marker, h.ID, h.Name)
				}
				return nil
			}
			if err := application.Prefs.Write(args[0]); err != nil {
				return err
			}
			fmt.Printf("Hat set to %s\n", app.HatName(args[0]))
			return nil
		},
	}

	transcriptCmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the current conversation and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			for _, msg := range application.Session.Messages() {
				who := "DOLMA"
				if msg.Role == app.RoleUser {
					who = "You"
				}
				fmt.Printf("%s: %s\n", who, app.DisplayText(msg))
			}
			return nil
		},
	}

	root.AddCommand(goalsCmd, hatCmd, transcriptCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
