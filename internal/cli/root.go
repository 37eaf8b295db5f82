// internal/cli/root.go
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. IPRX_KEY.
const EnvPrefix = "IPRX"

// NewRootCommand builds iprxctl. Every flag may also come from the
// environment or from the file given with --config.
func NewRootCommand(version string) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfgFile string
	root := &cobra.Command{
		Use:           "iprxctl",
		Short:         "Sign, inspect and hash IPRx exchange orders",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config %s: %w", cfgFile, err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")

	root.AddCommand(newOrderCommand(v), newKeyCommand(v))
	return root
}

// bindFlags lets viper resolve every flag of cmd, so values set in the
// environment or config file apply when the flag is absent.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	_ = v.BindPFlags(cmd.Flags())
}

func writeJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
