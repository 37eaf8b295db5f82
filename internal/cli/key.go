// internal/cli/key.go
package cli

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type keyView struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key,omitempty"`
}

func newKeyCommand(v *viper.Viper) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage signing keys",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a secp256k1 key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return fmt.Errorf("generating key: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), keyView{
				Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
				PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
			})
		},
	}

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "Print the address of --key",
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(v)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), keyView{
				Address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
			})
		},
	}
	addressCmd.Flags().String("key", "", "hex private key (env IPRX_KEY)")

	keyCmd.AddCommand(newCmd, addressCmd)
	return keyCmd
}

func loadKey(v *viper.Viper) (*ecdsa.PrivateKey, error) {
	raw := strings.TrimPrefix(v.GetString("key"), "0x")
	if raw == "" {
		return nil, fmt.Errorf("a private key is required (--key or %s_KEY)", EnvPrefix)
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}
