// internal/cli/order.go
package cli

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/civicledger/IPRx-Core/internal/codec"
)

// orderView is the JSON rendering of a signed order. Integers are decimal
// strings so 256-bit values survive any JSON consumer.
type orderView struct {
	Hash                string `json:"hash"`
	Signer              string `json:"signer,omitempty"`
	Encoded             string `json:"encoded,omitempty"`
	OrganisationIndex   uint64 `json:"organisation_index"`
	IPTypeIndex         uint64 `json:"ip_type_index"`
	IPIndex             string `json:"ip_index"`
	OrderTakerAddress   string `json:"order_taker_address"`
	MarketplaceAddress  string `json:"marketplace_address"`
	OrderType           uint8  `json:"order_type"`
	PaymentCurrency     uint8  `json:"payment_currency"`
	PaymentTokenAddress string `json:"payment_token_address"`
	PaymentAmountInWei  string `json:"payment_amount_in_wei"`
	Nonce               string `json:"nonce"`
	Timestamp           string `json:"timestamp"`
	FeeRecipientAddress string `json:"fee_recipient_address"`
	FeeAmountInWei      string `json:"fee_amount_in_wei"`
	V                   uint8  `json:"v"`
	R                   string `json:"r"`
	S                   string `json:"s"`
	SignerError         string `json:"signer_error,omitempty"`
}

func newOrderView(so *codec.SignedOrder) orderView {
	o := &so.Order
	view := orderView{
		Hash:                o.Hash().Hex(),
		OrganisationIndex:   o.OrganisationIndex,
		IPTypeIndex:         o.IPTypeIndex,
		IPIndex:             o.IPIndex.String(),
		OrderTakerAddress:   o.OrderTaker.Hex(),
		MarketplaceAddress:  o.Marketplace.Hex(),
		OrderType:           o.OrderType,
		PaymentCurrency:     o.PaymentCurrency,
		PaymentTokenAddress: o.PaymentToken.Hex(),
		PaymentAmountInWei:  o.PaymentAmount.String(),
		Nonce:               o.Nonce.String(),
		Timestamp:           o.Timestamp.String(),
		FeeRecipientAddress: o.FeeRecipient.Hex(),
		FeeAmountInWei:      o.FeeAmount.String(),
		V:                   so.Signature.V,
		R:                   so.Signature.R.Hex(),
		S:                   so.Signature.S.Hex(),
	}
	if signer, err := so.Signer(); err != nil {
		view.SignerError = err.Error()
	} else {
		view.Signer = signer.Hex()
	}
	return view
}

func newOrderCommand(v *viper.Viper) *cobra.Command {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Build and inspect encoded orders",
	}
	orderCmd.AddCommand(newOrderSignCommand(v), newOrderDecodeCommand(), newOrderHashCommand())
	return orderCmd
}

func newOrderSignCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign an order with --key and print its encoding",
		Long: `Sign an order and print the hex encoding accepted by POST /v1/orders.

The order taker defaults to the signing key's address. Integer flags accept
decimal or 0x-prefixed hex.

Examples:
  iprxctl order sign --key $KEY --marketplace 0x1111... --ip-index 1 --nonce 1
  IPRX_KEY=$KEY iprxctl order sign --marketplace 0x1111... --nonce 2 | jq -r .encoded`,
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(cmd, v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := loadKey(v)
			if err != nil {
				return err
			}
			order, err := orderFromFlags(v, crypto.PubkeyToAddress(key.PublicKey))
			if err != nil {
				return err
			}

			signed, err := codec.Sign(*order, key)
			if err != nil {
				return err
			}
			encoded, err := codec.Encode(signed)
			if err != nil {
				return err
			}

			view := newOrderView(signed)
			view.Encoded = hexutil.Encode(encoded)
			return writeJSON(cmd.OutOrStdout(), view)
		},
	}

	flags := cmd.Flags()
	flags.String("key", "", "hex private key of the order taker (env IPRX_KEY)")
	flags.Uint64("organisation", 0, "organisation index")
	flags.Uint64("ip-type", 0, "ip type index within the organisation")
	flags.String("ip-index", "1", "ip index under the ip type's rights token")
	flags.String("taker", "", "order taker address (default: the key's address)")
	flags.String("marketplace", "", "marketplace address")
	flags.Uint8("order-type", 1, "order type")
	flags.Uint8("payment-currency", 1, "payment currency")
	flags.String("payment-token", common.Address{}.Hex(), "payment token address")
	flags.String("payment-amount", "0", "payment amount in wei")
	flags.String("nonce", "", "signer nonce, strictly above the last one used")
	flags.String("timestamp", "", "order timestamp (default: now, unix seconds)")
	flags.String("fee-recipient", common.Address{}.Hex(), "fee recipient address")
	flags.String("fee-amount", "0", "fee amount in wei")
	return cmd
}

func newOrderDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode an encoded order and recover its signer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, err := decodeArg(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), newOrderView(signed))
		},
	}
}

func newOrderHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <hex>",
		Short: "Print the signing hash of an encoded order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signed, err := decodeArg(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed.Order.Hash().Hex())
			return err
		},
	}
}

func decodeArg(arg string) (*codec.SignedOrder, error) {
	raw := strings.TrimSpace(arg)
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}
	data, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("order must be hex: %w", err)
	}
	return codec.Decode(data)
}

func orderFromFlags(v *viper.Viper, keyAddress common.Address) (*codec.Order, error) {
	taker := keyAddress
	if raw := v.GetString("taker"); raw != "" {
		addr, err := addressValue("taker", raw)
		if err != nil {
			return nil, err
		}
		taker = addr
	}
	marketplace, err := addressValue("marketplace", v.GetString("marketplace"))
	if err != nil {
		return nil, err
	}
	paymentToken, err := addressValue("payment-token", v.GetString("payment-token"))
	if err != nil {
		return nil, err
	}
	feeRecipient, err := addressValue("fee-recipient", v.GetString("fee-recipient"))
	if err != nil {
		return nil, err
	}

	if v.GetString("nonce") == "" {
		return nil, fmt.Errorf("--nonce is required")
	}
	timestamp := v.GetString("timestamp")
	if timestamp == "" {
		timestamp = fmt.Sprint(time.Now().Unix())
	}

	order := &codec.Order{
		OrderTaker:   taker,
		Marketplace:  marketplace,
		PaymentToken: paymentToken,
		FeeRecipient: feeRecipient,
	}
	if order.OrganisationIndex, err = uintValue("organisation", v.GetString("organisation"), 64); err != nil {
		return nil, err
	}
	if order.IPTypeIndex, err = uintValue("ip-type", v.GetString("ip-type"), 64); err != nil {
		return nil, err
	}
	orderType, err := uintValue("order-type", v.GetString("order-type"), 8)
	if err != nil {
		return nil, err
	}
	currency, err := uintValue("payment-currency", v.GetString("payment-currency"), 8)
	if err != nil {
		return nil, err
	}
	order.OrderType = uint8(orderType)
	order.PaymentCurrency = uint8(currency)

	for _, f := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"ip-index", v.GetString("ip-index"), &order.IPIndex},
		{"payment-amount", v.GetString("payment-amount"), &order.PaymentAmount},
		{"nonce", v.GetString("nonce"), &order.Nonce},
		{"timestamp", timestamp, &order.Timestamp},
		{"fee-amount", v.GetString("fee-amount"), &order.FeeAmount},
	} {
		n, err := uint256Value(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = n
	}
	return order, nil
}

func addressValue(name, raw string) (common.Address, error) {
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("--%s must be a hex address, got %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// uintValue parses raw as an unsigned integer of the given width. Values
// from the environment or a config file bypass flag parsing, so the range
// is checked here.
func uintValue(name, raw string, bits int) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 0, bits)
	if err != nil {
		return 0, fmt.Errorf("--%s must be an unsigned %d-bit integer, got %q", name, bits, raw)
	}
	return n, nil
}

func uint256Value(name, raw string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
	if !ok || n.Sign() < 0 || n.Cmp(maxUint256) > 0 {
		return nil, fmt.Errorf("--%s must be an unsigned 256-bit integer, got %q", name, raw)
	}
	return n, nil
}
