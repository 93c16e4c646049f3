package main

import (
	"fmt"
	"os"

	"github.com/lexora-ai/lexora/internal/cli"
	"github.com/lexora-ai/lexora/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lexorad",
		Short: "Lexora daemon and CLI",
		Long:  "Lexora daemon for running the API server and managing users and documents",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.UserCmd())
	rootCmd.AddCommand(admin.DocsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
