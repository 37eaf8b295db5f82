// internal/codec/order.go
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrMalformedOrder   = errors.New("malformed order")
	ErrInvalidSignature = errors.New("invalid signature")
)

// FieldCount is the number of elements in an encoded order: 13 payload
// fields followed by v, r and s.
const (
	FieldCount   = 16
	PayloadCount = 13
)

// Field positions on the wire.
const (
	FieldOrganisationIndex = iota
	FieldIPTypeIndex
	FieldIPIndex
	FieldOrderTaker
	FieldMarketplace
	FieldOrderType
	FieldPaymentCurrency
	FieldPaymentToken
	FieldPaymentAmount
	FieldNonce
	FieldTimestamp
	FieldFeeRecipient
	FieldFeeAmount
	FieldV
	FieldR
	FieldS
)

var fieldNames = [FieldCount]string{
	"organisation_index",
	"ip_type_index",
	"ip_index",
	"order_taker_address",
	"marketplace_address",
	"order_type",
	"payment_currency",
	"payment_token_address",
	"payment_amount_in_wei",
	"nonce",
	"timestamp",
	"fee_recipient_address",
	"fee_amount_in_wei",
	"v",
	"r",
	"s",
}

// FieldName returns the wire name of the field at position i.
func FieldName(i int) string {
	if i < 0 || i >= FieldCount {
		return fmt.Sprintf("field_%d", i)
	}
	return fieldNames[i]
}

// Order is the unsigned payload a taker signs.
type Order struct {
	OrganisationIndex uint64
	IPTypeIndex       uint64
	IPIndex           *big.Int
	OrderTaker        common.Address
	Marketplace       common.Address
	OrderType         uint8
	PaymentCurrency   uint8
	PaymentToken      common.Address
	PaymentAmount     *big.Int
	Nonce             *big.Int
	Timestamp         *big.Int
	FeeRecipient      common.Address
	FeeAmount         *big.Int
}

type Signature struct {
	V uint8
	R common.Hash
	S common.Hash
}

type SignedOrder struct {
	Order     Order
	Signature Signature
}

// Hash is keccak256 over the tightly packed payload: integers as 32-byte
// big-endian words, addresses as their 20 raw bytes, in wire order.
func (o *Order) Hash() common.Hash {
	buf := make([]byte, 0, 9*32+4*common.AddressLength)
	buf = append(buf, word(new(big.Int).SetUint64(o.OrganisationIndex))...)
	buf = append(buf, word(new(big.Int).SetUint64(o.IPTypeIndex))...)
	buf = append(buf, word(o.IPIndex)...)
	buf = append(buf, o.OrderTaker.Bytes()...)
	buf = append(buf, o.Marketplace.Bytes()...)
	buf = append(buf, word(big.NewInt(int64(o.OrderType)))...)
	buf = append(buf, word(big.NewInt(int64(o.PaymentCurrency)))...)
	buf = append(buf, o.PaymentToken.Bytes()...)
	buf = append(buf, word(o.PaymentAmount)...)
	buf = append(buf, word(o.Nonce)...)
	buf = append(buf, word(o.Timestamp)...)
	buf = append(buf, o.FeeRecipient.Bytes()...)
	buf = append(buf, word(o.FeeAmount)...)
	return crypto.Keccak256Hash(buf)
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return common.LeftPadBytes(v.Bytes(), 32)
}

func intBytes(v *big.Int) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}

// Fields returns the 16 wire elements. Integers use their minimal
// big-endian form, zero being the empty string.
func (so *SignedOrder) Fields() [][]byte {
	o := &so.Order
	return [][]byte{
		intBytes(new(big.Int).SetUint64(o.OrganisationIndex)),
		intBytes(new(big.Int).SetUint64(o.IPTypeIndex)),
		intBytes(o.IPIndex),
		o.OrderTaker.Bytes(),
		o.Marketplace.Bytes(),
		intBytes(big.NewInt(int64(o.OrderType))),
		intBytes(big.NewInt(int64(o.PaymentCurrency))),
		o.PaymentToken.Bytes(),
		intBytes(o.PaymentAmount),
		intBytes(o.Nonce),
		intBytes(o.Timestamp),
		o.FeeRecipient.Bytes(),
		intBytes(o.FeeAmount),
		intBytes(big.NewInt(int64(so.Signature.V))),
		so.Signature.R.Bytes(),
		so.Signature.S.Bytes(),
	}
}

// Encode serialises a signed order as an RLP list of 16 byte strings.
func Encode(so *SignedOrder) ([]byte, error) {
	return EncodeFields(so.Fields())
}

// EncodeFields serialises raw wire elements without validation.
func EncodeFields(fields [][]byte) ([]byte, error) {
	out, err := rlp.EncodeToBytes(fields)
	if err != nil {
		return nil, fmt.Errorf("codec.Encode: %w", err)
	}
	return out, nil
}

// Decode parses an encoded order. Every failure wraps ErrMalformedOrder.
func Decode(data []byte) (*SignedOrder, error) {
	var fields [][]byte
	if err := rlp.DecodeBytes(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOrder, err)
	}
	return DecodeFields(fields)
}

// DecodeFields builds a signed order from already split wire elements.
func DecodeFields(fields [][]byte) (*SignedOrder, error) {
	if len(fields) != FieldCount {
		return nil, fmt.Errorf("%w: expected %d elements, got %d", ErrMalformedOrder, FieldCount, len(fields))
	}

	d := decoder{fields: fields}
	so := &SignedOrder{
		Order: Order{
			OrganisationIndex: d.uint64(FieldOrganisationIndex),
			IPTypeIndex:       d.uint64(FieldIPTypeIndex),
			IPIndex:           d.uint256(FieldIPIndex),
			OrderTaker:        d.address(FieldOrderTaker),
			Marketplace:       d.address(FieldMarketplace),
			OrderType:         d.uint8(FieldOrderType),
			PaymentCurrency:   d.uint8(FieldPaymentCurrency),
			PaymentToken:      d.address(FieldPaymentToken),
			PaymentAmount:     d.uint256(FieldPaymentAmount),
			Nonce:             d.uint256(FieldNonce),
			Timestamp:         d.uint256(FieldTimestamp),
			FeeRecipient:      d.address(FieldFeeRecipient),
			FeeAmount:         d.uint256(FieldFeeAmount),
		},
		Signature: Signature{
			V: d.uint8(FieldV),
			R: d.word(FieldR),
			S: d.word(FieldS),
		},
	}
	if d.err != nil {
		return nil, d.err
	}
	return so, nil
}

// decoder keeps the first error so field extraction reads linearly.
type decoder struct {
	fields [][]byte
	err    error
}

func (d *decoder) fail(i int, format string, args ...interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %s: %s", ErrMalformedOrder, FieldName(i), fmt.Sprintf(format, args...))
	}
}

func (d *decoder) integer(i, maxBytes int) []byte {
	b := bytes.TrimLeft(d.fields[i], "\x00")
	if len(b) > maxBytes {
		d.fail(i, "wider than %d bytes", maxBytes)
		return nil
	}
	return b
}

func (d *decoder) uint256(i int) *big.Int {
	return new(big.Int).SetBytes(d.integer(i, 32))
}

func (d *decoder) uint64(i int) uint64 {
	return new(big.Int).SetBytes(d.integer(i, 8)).Uint64()
}

func (d *decoder) uint8(i int) uint8 {
	b := d.integer(i, 1)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

func (d *decoder) word(i int) common.Hash {
	return common.BytesToHash(d.integer(i, 32))
}

func (d *decoder) address(i int) common.Address {
	if len(d.fields[i]) != common.AddressLength {
		d.fail(i, "address must be %d bytes, got %d", common.AddressLength, len(d.fields[i]))
		return common.Address{}
	}
	return common.BytesToAddress(d.fields[i])
}
