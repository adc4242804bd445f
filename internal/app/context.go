package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/miviz/miviz/internal/buildinfo"
	"github.com/miviz/miviz/internal/conf"
)

// Context is shared by the CLI commands. Commands bind their flags to Viper
// when they are built; the root command loads settings and fills in App
// before a subcommand runs.
type Context struct {
	Viper      *viper.Viper
	Build      *buildinfo.Context
	ConfigFile string

	// LoadOptions are passed to conf.Load and Options to New by Setup.
	LoadOptions []conf.Option
	Options     []Option

	App *App
}

// NewContext returns a context with a fresh Viper instance.
func NewContext(info *buildinfo.Context) *Context {
	return &Context{
		Viper: viper.New(),
		Build: info,
	}
}

// Setup loads settings, honoring bound flags, and builds the App.
func (c *Context) Setup() error {
	opts := append([]conf.Option{conf.WithViper(c.Viper)}, c.LoadOptions...)
	if c.ConfigFile != "" {
		opts = append(opts, conf.WithConfigFile(c.ConfigFile))
	}

	settings, err := conf.Load(opts...)
	if err != nil {
		return err
	}

	a, err := New(settings, c.Build, c.Options...)
	if err != nil {
		return err
	}
	c.App = a
	return nil
}

// Close releases the App, if one was built. It is safe to call twice.
func (c *Context) Close() error {
	if c.App == nil {
		return nil
	}
	err := c.App.Close()
	c.App = nil
	return err
}

// BindFlags binds command flags to config keys, keyed by flag name, so a
// flag set on the command line overrides the file and environment.
func (c *Context) BindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("flag %q is not defined on %s", flag, cmd.Name())
		}
		if err := c.Viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("error binding flag %q: %w", flag, err)
		}
	}
	return nil
}
