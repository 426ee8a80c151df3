package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/cellrelay/pkg/version"
)

// RunFunc is the entrypoint invoked once the options are loaded and validated.
type RunFunc func() error

// Option customizes an App.
type Option func(*App)

// App is the main structure of a cli application built on cobra.
type App struct {
	name        string
	shortDesc   string
	description string
	options     CliOptions
	runFunc     RunFunc
	noConfig    bool
	args        cobra.PositionalArgs
	cmd         *cobra.Command
}

// WithOptions sets the options read from flags and the config file.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the function run after option validation.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithDescription sets the long description of the command.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithNoConfig disables the --config flag.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// WithValidArgs sets the positional argument validator.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) {
		a.args = args
	}
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// NewApp creates a new application instance based on the given name and options.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
	}

	for _, o := range opts {
		o(a)
	}

	a.buildCommand()
	return a
}

// Command returns the cobra command, mostly for tests.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:   a.name,
		Short: a.shortDesc,
		Long:  a.description,
		// stop printing usage when the command errors
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          a.args,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	version.AddFlags(namedFlagSets.FlagSet("global"))
	if !a.noConfig {
		addConfigFlag(a.name, namedFlagSets.FlagSet("global"))
	}
	globalflag.AddGlobalFlags(namedFlagSets.FlagSet("global"), cmd.Name())

	fs := cmd.Flags()
	for _, f := range namedFlagSets.FlagSets {
		fs.AddFlagSet(f)
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	version.PrintAndExitIfRequested()

	if !a.noConfig {
		if err := loadConfig(); err != nil {
			return err
		}
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
	}

	if a.options != nil {
		if !a.noConfig {
			if err := viper.Unmarshal(a.options); err != nil {
				return fmt.Errorf("failed to unmarshal configuration: %w", err)
			}
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	return a.runFunc()
}
