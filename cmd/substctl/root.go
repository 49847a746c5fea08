package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	subst "github.com/goliatone/go-subst"
	"github.com/goliatone/go-subst/pkg/source"
)

const (
	envPrefix         = "SUBSTCTL"
	defaultConfigFile = ".substctl.yaml"
)

// app holds the state shared by subcommands for one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
	sets    []string
	rules   []string
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "substctl",
		Short:         "Resolve placeholders in layered configuration",
		Long:          `substctl loads YAML, TOML and JSON files, layers environment variables and overrides on top, and prints values with every {Key} reference substituted.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "substctl config file (default: ./"+defaultConfigFile+" when present)")
	flags.StringSliceP("file", "f", nil, "configuration file to load, repeatable; later files win")
	flags.String("env-prefix", "", "environment variable prefix layered over the files (disabled when empty)")
	flags.StringArray("set", nil, "override as key=value, repeatable; strongest layer")
	flags.String("start", subst.DefaultStartDelimiter, "reference start delimiter")
	flags.String("end", subst.DefaultEndDelimiter, "reference end delimiter")
	flags.String("on-missing", "throw", "unresolved reference behaviour: throw, ignore or keep")
	flags.String("fallback-delimiter", "", "inline default separator, e.g. \":\" for {Key:default}")
	flags.Bool("write-back", false, "store learned fallback defaults in the override layer")
	flags.Bool("case-insensitive", false, "match keys ignoring case")
	flags.StringArray("rule", nil, "policy rule as behaviour=expression, repeatable; first match wins")
	flags.String("rule-engine", "expr", "policy rule engine: expr, cel or js")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newGetCmd(a), newExpandCmd(a), newDumpCmd(a), newTraceCmd(a))
	return root
}

func (a *app) initConfig(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	switch {
	case a.cfgFile != "":
		a.v.SetConfigFile(a.cfgFile)
	default:
		if _, err := os.Stat(defaultConfigFile); err == nil {
			a.v.SetConfigFile(defaultConfigFile)
		}
	}
	if a.v.ConfigFileUsed() != "" {
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", a.v.ConfigFileUsed(), err)
		}
	}

	// Array flags bypass viper, which splits them as CSV.
	a.sets, _ = cmd.Flags().GetStringArray("set")
	if len(a.sets) == 0 {
		for key, value := range a.v.GetStringMapString("overrides") {
			a.sets = append(a.sets, key+"="+value)
		}
	}
	a.rules, _ = cmd.Flags().GetStringArray("rule")
	if len(a.rules) == 0 {
		a.rules = a.v.GetStringSlice("rules")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString("log-level"))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// environment is the resolved configuration built from flags for one run.
type environment struct {
	stack       *subst.Stack
	files       *source.Files
	substitutor *subst.Substitutor
	provider    *subst.Provider
}

func (a *app) environment() (*environment, error) {
	var mapOpts []subst.MapOption
	if a.v.GetBool("case-insensitive") {
		mapOpts = append(mapOpts, subst.WithCaseInsensitiveKeys())
	}

	overrides := subst.NewMapLookup(nil, mapOpts...)
	for _, assignment := range a.sets {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", assignment)
		}
		overrides.Set(key, value)
	}

	env := &environment{}
	layers := []subst.Layer{
		subst.NewLayer(subst.NewScope("override", subst.ScopePriorityOverride, subst.WithScopeLabel("Overrides")), overrides),
	}
	if prefix := a.v.GetString("env-prefix"); prefix != "" {
		layers = append(layers, subst.NewLayer(subst.NewScope("env", subst.ScopePriorityEnv, subst.WithScopeLabel("Environment")), subst.NewEnvLookup(prefix)))
	}
	if paths := a.v.GetStringSlice("file"); len(paths) > 0 {
		files, err := source.Load(paths, source.WithLookup(subst.NewMapLookup(nil, mapOpts...)))
		if err != nil {
			return nil, err
		}
		env.files = files
		layers = append(layers, subst.NewLayer(subst.NewScope("file", subst.ScopePriorityFile, subst.WithScopeLabel("Configuration Files")), files.Lookup()))
	}

	stack, err := subst.NewStack(layers...)
	if err != nil {
		return nil, err
	}
	env.stack = stack

	behaviour, err := subst.ParseUnresolvedBehaviour(a.v.GetString("on-missing"))
	if err != nil {
		return nil, err
	}
	opts := []subst.Option{
		subst.WithUnresolvedBehaviour(behaviour),
		subst.WithFallbackDelimiter(a.v.GetString("fallback-delimiter")),
		subst.WithFallbackWriteBack(a.v.GetBool("write-back")),
		subst.WithLogger(subst.SlogLogger(a.logger)),
	}
	ruleOpts, err := a.ruleOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, ruleOpts...)

	env.substitutor, err = subst.New(a.v.GetString("start"), a.v.GetString("end"), opts...)
	if err != nil {
		return nil, err
	}

	env.provider, err = subst.NewProvider(stack, env.substitutor)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (a *app) ruleOptions() ([]subst.Option, error) {
	if len(a.rules) == 0 {
		return nil, nil
	}
	rules := make([]subst.PolicyRule, 0, len(a.rules))
	for _, raw := range a.rules {
		name, expression, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(expression) == "" {
			return nil, fmt.Errorf("invalid --rule %q, expected behaviour=expression", raw)
		}
		behaviour, err := subst.ParseUnresolvedBehaviour(name)
		if err != nil {
			return nil, err
		}
		rules = append(rules, subst.PolicyRule{When: strings.TrimSpace(expression), Behaviour: behaviour})
	}

	opts := []subst.Option{subst.WithPolicyRules(rules...)}
	switch engine := strings.ToLower(a.v.GetString("rule-engine")); engine {
	case "", "expr":
	case "cel":
		opts = append(opts, subst.WithEvaluator(subst.NewCELEvaluator()))
	case "js":
		if !subst.JSEvaluatorAvailable() {
			return nil, errors.New("the js rule engine requires a build with -tags js_eval")
		}
		opts = append(opts, subst.WithEvaluator(subst.NewJSEvaluator()))
	default:
		return nil, fmt.Errorf("unknown rule engine %q", engine)
	}
	return opts, nil
}

var errNotFound = errors.New("key not found")
