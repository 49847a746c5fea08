package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-subst/pkg/source"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY...",
		Short: "Print the substituted value of each key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment()
			if err != nil {
				return err
			}
			for _, key := range args {
				value, found, err := env.provider.GetContext(cmd.Context(), key)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("%w: %s", errNotFound, key)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
			}
			return nil
		},
	}
}

func newExpandCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "expand TEXT",
		Short: "Substitute references in TEXT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment()
			if err != nil {
				return err
			}
			value, err := env.substitutor.ExpandContext(cmd.Context(), env.stack, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newTraceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trace KEY",
		Short: "Show the raw value every layer holds for KEY as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.environment()
			if err != nil {
				return err
			}
			payload, err := env.stack.Trace(args[0]).ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		watch    bool
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "dump [SECTION]",
		Short: "Print every resolved value as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := ""
			if len(args) == 1 {
				section = args[0]
			}
			env, err := a.environment()
			if err != nil {
				return err
			}
			if err := dump(cmd, env, section); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			if env.files == nil {
				return fmt.Errorf("--watch requires at least one --file")
			}

			watcher, err := source.NewWatcher(env.files, debounce)
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Stop() }()
			reloads, err := watcher.Start()
			if err != nil {
				return err
			}
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case err := <-reloads:
					if err != nil {
						a.logger.Warn("reload failed", "error", err)
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), "---")
					if err := dump(cmd, env, section); err != nil {
						a.logger.Error("dump failed", "error", err)
					}
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "print again whenever a file changes")
	cmd.Flags().DurationVar(&debounce, "debounce", source.DefaultDebounce, "wait for writes to settle before reloading")
	return cmd
}

func dump(cmd *cobra.Command, env *environment, section string) error {
	tree, err := env.provider.Tree(cmd.Context(), section)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
