package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const ErrExitCode = 1

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(ErrExitCode)
	}
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elim",
		Short: "ELIM community discussions",
	}
	cmd.AddCommand(
		NewServeCmd(),
		NewMigrateCmd(),
		NewCommentsCmd(),
	)
	return cmd
}
