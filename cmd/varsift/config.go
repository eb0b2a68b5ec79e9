package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/inodb/varsift/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage varsift configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.varsift.yaml.",
		Example: `  varsift config                          # show all config
  varsift config set import.batch_size 5000  # larger transactions
  varsift config set plugins.disabled samples
  varsift config get log.mode                # get a value`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !a.v.IsSet(key) {
				return usageError{fmt.Errorf("unknown config key %q", key)}
			}
			prev := a.v.Get(key)

			// Parse boolean-like values
			switch value {
			case "true", "yes", "on":
				a.v.Set(key, true)
			case "false", "no", "off":
				a.v.Set(key, false)
			default:
				a.v.Set(key, value)
			}

			if err := checkConfig(a); err != nil {
				a.v.Set(key, prev)
				return err
			}

			path, err := config.Save(a.v, a.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.v.IsSet(args[0]) {
				return fmt.Errorf("key %q is not set", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.v.Get(args[0]))
			return nil
		},
	})

	return cmd
}

// checkConfig decodes and validates the current settings of a.
func checkConfig(a *app) error {
	var cfg config.Config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}
	return cfg.Validate()
}
