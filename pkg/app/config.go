package app

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/autopeer-io/cellrelay/pkg/log"
)

const configFlagName = "config"

var cfgFile string

// addConfigFlag registers --config and prepares viper to read it together with
// environment variables prefixed by the upper-cased basename.
func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, configFlagName, "c", cfgFile, "Read configuration from specified `FILE`, support YAML format.")

	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix(basename))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// loadConfig reads the config file, if any. Changes made afterwards are only
// reported: the agent reads its configuration once per process lifetime.
func loadConfig() error {
	if cfgFile == "" {
		return nil
	}

	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file(%s): %w", cfgFile, err)
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Warn("Configuration file changed, restart the agent to apply it", "file", e.Name, "op", e.Op.String())
	})
	viper.WatchConfig()

	return nil
}

func envPrefix(basename string) string {
	prefix := strings.ToUpper(strings.ReplaceAll(basename, "-", "_"))
	if idx := strings.Index(prefix, "_"); idx > 0 {
		// cpeer-relay-agent -> CPEER
		prefix = prefix[:idx]
	}
	return prefix
}
