package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/cli/migrate"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tasksensei",
		Short: "TaskSensei backend: login, profile, chat sessions, file access and billing",
		PersistentPreRun: func(*cobra.Command, []string) {
			// .env is optional; real environment variables win.
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
