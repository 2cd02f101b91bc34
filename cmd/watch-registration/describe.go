package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	watchregistration "watch-registration/internal/workers/tokenization/watch-registration"
	"watch-registration/pkg/registry"
)

func newDescribeCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the activity descriptor of the registration job worker",
		Long: `describe prints the task type, input and output schemas and BPMN error
codes of the registration job worker. With --registry the descriptor is
written into that activity registry file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			activity := watchregistration.Activity(watchregistration.DefaultConfig())

			if registryPath == "" {
				data, err := json.MarshalIndent(activity, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			reg.Upsert(activity, time.Now())
			if err := reg.Save(registryPath); err != nil {
				return fmt.Errorf("failed to write registry: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered activity %s in %s\n", activity.ID, registryPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&registryPath, "registry", "", "activity registry file to update")
	return cmd
}
