package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"taskflow/internal/app"
	"taskflow/internal/config"
	"taskflow/internal/repository/postgres"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "taskflow",
	Short:        "Трекер задач с последовательными шагами и прогрессом по времени",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP API и воркер дедлайнов",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Миграции схемы postgres",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Применить все миграции",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Откатить миграции, по умолчанию одну",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMigrateDown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "путь к config.yml")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(cfg)
	if err := a.Init(ctx); err != nil {
		return err
	}
	return a.Run(ctx)
}

func databaseURL() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", errors.New("database.url не задан")
	}
	return cfg.Database.URL, nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}
	if err := postgres.MigrateUp(url); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "миграции применены")
	return nil
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	steps := 1
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("steps должно быть положительным числом: %q", args[0])
		}
		steps = n
	}

	url, err := databaseURL()
	if err != nil {
		return err
	}
	if err := postgres.MigrateDown(url, steps); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "откачено миграций: %d\n", steps)
	return nil
}

