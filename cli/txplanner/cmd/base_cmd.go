package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type txplannerApp struct {
	baseCmd    *cobra.Command
	baseConfig *baseConfiguration
}

// New creates the txplanner command line application.
func New() *txplannerApp {
	config := &baseConfiguration{}
	return &txplannerApp{baseCmd: newBaseCmd(config), baseConfig: config}
}

// Execute runs the command given as process arguments.
func (a *txplannerApp) Execute(ctx context.Context) error {
	return a.addAndExecuteCommand(ctx)
}

func (a *txplannerApp) addAndExecuteCommand(ctx context.Context) error {
	a.baseCmd.AddCommand(
		newViewCmd(a.baseConfig),
		newPlanCmd(a.baseConfig),
	)
	return a.baseCmd.ExecuteContext(ctx)
}

func newBaseCmd(config *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "txplanner",
		Short: "plans balanced shielded transactions",
		Long: `txplanner builds balanced transaction plans: it selects notes to spend,
adds change outputs and pays the fee. Notes are read from the local view
database or from a view backend serving it over REST.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		// subcommands must not define PersistentPreRunE, it would replace this one
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.Join(config.loadConfig(cmd), config.initLogger(cmd)); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			return nil
		},
	}
	config.addConfigurationFlags(cmd)
	return cmd
}
