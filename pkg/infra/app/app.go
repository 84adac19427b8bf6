// Package app provides application bootstrapping with Cobra, Viper, and Pflag.
//
// Configuration is resolved in order: defaults, config file, environment
// variables, then explicitly set flags.
//
//	app := app.NewApp(
//	    app.WithName("persona-assistant"),
//	    app.WithOptions(opts),
//	    app.WithCommands(askCmd, ingestCmd),
//	)
//	app.Run()
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kart-io/persona-assistant/pkg/app/cliflag"
)

// CliOptions is implemented by the root options of an App.
type CliOptions interface {
	// Flags returns flags grouped by section.
	Flags() cliflag.NamedFlagSets
	// Complete fills in fields derived from other fields.
	Complete() error
	// Validate validates the options.
	Validate() error
}

// App is the main application structure.
type App struct {
	name        string
	shortDesc   string
	description string
	options     CliOptions
	runFunc     RunFunc
	commands    []*cobra.Command
	cmd         *cobra.Command
	viper       *viper.Viper
	noVersion   bool
	noConfig    bool
}

// RunFunc is the application's run function.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the application name.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithShortDescription sets the short description.
func WithShortDescription(desc string) Option {
	return func(a *App) {
		a.shortDesc = desc
	}
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the CLI options shared by the root command and its subcommands.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the root command's run function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithCommands adds subcommands. They see the loaded and validated options.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.commands = append(a.commands, cmds...)
	}
}

// WithNoVersion disables version flag.
func WithNoVersion() Option {
	return func(a *App) {
		a.noVersion = true
	}
}

// WithNoConfig disables config file loading.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name:  filepath.Base(os.Args[0]),
		viper: viper.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:               a.name,
		Short:             a.shortDesc,
		Long:              a.description,
		SilenceUsage:      true,
		PersistentPreRunE: a.prepare,
	}
	if a.runFunc != nil {
		cmd.RunE = func(*cobra.Command, []string) error { return a.runFunc() }
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to config file.")
	}
	if !a.noVersion {
		version.AddFlags(cmd.PersistentFlags())
	}

	if a.options != nil {
		fss := a.options.Flags()
		fss.AddTo(cmd.PersistentFlags())

		cols := 0
		cmd.SetUsageFunc(func(c *cobra.Command) error {
			fmt.Fprintf(c.OutOrStderr(), "Usage:\n  %s\n", c.UseLine())
			if c.HasAvailableSubCommands() {
				fmt.Fprintf(c.OutOrStderr(), "\nAvailable Commands:\n")
				for _, sub := range c.Commands() {
					if sub.IsAvailableCommand() {
						fmt.Fprintf(c.OutOrStderr(), "  %-12s %s\n", sub.Name(), sub.Short)
					}
				}
			}
			if c.HasAvailableLocalFlags() {
				fmt.Fprintf(c.OutOrStderr(), "\nFlags:\n%s", c.LocalNonPersistentFlags().FlagUsagesWrapped(cols))
			}
			cliflag.PrintSections(c.OutOrStderr(), fss, cols)
			return nil
		})
	}

	cmd.AddCommand(a.commands...)
	a.cmd = cmd
}

// prepare runs before every command: version, config, complete, validate.
func (a *App) prepare(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}

	if !a.noConfig {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options == nil {
		return nil
	}
	if err := a.options.Complete(); err != nil {
		return err
	}
	return a.options.Validate()
}

// loadConfig loads configuration from file, environment, and flags.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+a.name))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars(v)

	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// 配置文件会覆盖 flag 的值，先记下显式设置的 flag
	changed := make(map[string]string)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = f.Value.String()
		}
	})

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for name, val := range changed {
		f := cmd.Flags().Lookup(name)
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			// 切片类型的 String() 带方括号，不能直接 Set
			if err := sv.Replace(splitSliceFlag(val)); err != nil {
				return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
			}
			continue
		}
		if err := cmd.Flags().Set(name, val); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}
	return nil
}

func splitSliceFlag(val string) []string {
	val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
	if val == "" {
		return nil
	}
	return strings.Split(val, ",")
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR} and $VAR references in string config values.
// Unknown variables are left as-is.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		s, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(s, func(match string) string {
			name := strings.TrimPrefix(match, "$")
			name = strings.TrimSuffix(strings.TrimPrefix(name, "{"), "}")
			if val := os.Getenv(name); val != "" {
				return val
			}
			return match
		})
		if expanded != s {
			v.Set(key, expanded)
		}
	}
}

// Run executes the application.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
