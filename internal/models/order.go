// internal/models/order.go
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/civicledger/IPRx-Core/internal/codec"
)

// Order is a verified, signed order stored under its marketplace at a
// zero-based sequence index.
type Order struct {
	BaseModel
	MarketplaceAddress common.Address `json:"marketplace_address" gorm:"not null;uniqueIndex:idx_marketplace_order"`
	OrderIndex         uint64         `json:"order_index" gorm:"not null;uniqueIndex:idx_marketplace_order"`
	Hash               common.Hash    `json:"hash" gorm:"not null;index"`

	// Core
	OrganisationIndex   uint64         `json:"organisation_index" gorm:"not null"`
	IPTypeIndex         uint64         `json:"ip_type_index" gorm:"not null"`
	IPIndex             Uint256        `json:"ip_index" gorm:"size:78;not null"`
	OrderTakerAddress   common.Address `json:"order_taker_address" gorm:"not null;index"`
	OrderType           OrderType      `json:"order_type" gorm:"not null"`
	Nonce               Uint256        `json:"nonce" gorm:"size:78;not null"`
	Timestamp           Uint256        `json:"timestamp" gorm:"size:78;not null"`
	FeeRecipientAddress common.Address `json:"fee_recipient_address"`
	FeeAmountInWei      Uint256        `json:"fee_amount_in_wei" gorm:"size:78"`

	// Payment
	PaymentCurrency     PaymentCurrency `json:"payment_currency" gorm:"not null"`
	PaymentTokenAddress common.Address  `json:"payment_token_address"`
	PaymentAmountInWei  Uint256         `json:"payment_amount_in_wei" gorm:"size:78"`

	// Signature
	SigV          uint8          `json:"v"`
	SigR          common.Hash    `json:"r"`
	SigS          common.Hash    `json:"s"`
	SignerAddress common.Address `json:"signer_address" gorm:"not null"`

	Status      OrderStatus    `json:"status" gorm:"not null;index"`
	SubmittedBy common.Address `json:"submitted_by"`
	DecidedBy   common.Address `json:"decided_by"`
	DecidedAt   *time.Time     `json:"decided_at"`
}

type OrderCore struct {
	OrganisationIndex   uint64         `json:"organisation_index"`
	IPTypeIndex         uint64         `json:"ip_type_index"`
	IPIndex             Uint256        `json:"ip_index"`
	OrderTakerAddress   common.Address `json:"order_taker_address"`
	MarketplaceAddress  common.Address `json:"marketplace_address"`
	OrderType           OrderType      `json:"order_type"`
	Nonce               Uint256        `json:"nonce"`
	Timestamp           Uint256        `json:"timestamp"`
	FeeRecipientAddress common.Address `json:"fee_recipient_address"`
	FeeAmountInWei      Uint256        `json:"fee_amount_in_wei"`
}

type OrderPayment struct {
	PaymentCurrency     PaymentCurrency `json:"payment_currency"`
	PaymentTokenAddress common.Address  `json:"payment_token_address"`
	PaymentAmountInWei  Uint256         `json:"payment_amount_in_wei"`
}

type OrderSignature struct {
	V             uint8          `json:"v"`
	R             common.Hash    `json:"r"`
	S             common.Hash    `json:"s"`
	SignerAddress common.Address `json:"signer_address"`
}

// NewPendingOrder builds the stored record for a verified submission.
func NewPendingOrder(so *codec.SignedOrder, signer, submittedBy common.Address, index uint64) *Order {
	o := &so.Order
	return &Order{
		MarketplaceAddress:  o.Marketplace,
		OrderIndex:          index,
		Hash:                o.Hash(),
		OrganisationIndex:   o.OrganisationIndex,
		IPTypeIndex:         o.IPTypeIndex,
		IPIndex:             NewUint256(o.IPIndex),
		OrderTakerAddress:   o.OrderTaker,
		OrderType:           OrderType(o.OrderType),
		Nonce:               NewUint256(o.Nonce),
		Timestamp:           NewUint256(o.Timestamp),
		FeeRecipientAddress: o.FeeRecipient,
		FeeAmountInWei:      NewUint256(o.FeeAmount),
		PaymentCurrency:     PaymentCurrency(o.PaymentCurrency),
		PaymentTokenAddress: o.PaymentToken,
		PaymentAmountInWei:  NewUint256(o.PaymentAmount),
		SigV:                so.Signature.V,
		SigR:                so.Signature.R,
		SigS:                so.Signature.S,
		SignerAddress:       signer,
		Status:              OrderStatusPending,
		SubmittedBy:         submittedBy,
	}
}

func (o *Order) Core() OrderCore {
	return OrderCore{
		OrganisationIndex:   o.OrganisationIndex,
		IPTypeIndex:         o.IPTypeIndex,
		IPIndex:             o.IPIndex,
		OrderTakerAddress:   o.OrderTakerAddress,
		MarketplaceAddress:  o.MarketplaceAddress,
		OrderType:           o.OrderType,
		Nonce:               o.Nonce,
		Timestamp:           o.Timestamp,
		FeeRecipientAddress: o.FeeRecipientAddress,
		FeeAmountInWei:      o.FeeAmountInWei,
	}
}

func (o *Order) Payment() OrderPayment {
	return OrderPayment{
		PaymentCurrency:     o.PaymentCurrency,
		PaymentTokenAddress: o.PaymentTokenAddress,
		PaymentAmountInWei:  o.PaymentAmountInWei,
	}
}

func (o *Order) Signature() OrderSignature {
	return OrderSignature{
		V:             o.SigV,
		R:             o.SigR,
		S:             o.SigS,
		SignerAddress: o.SignerAddress,
	}
}

// NonceRecord holds the highest nonce consumed for a signer.
type NonceRecord struct {
	Signer    common.Address `json:"signer" gorm:"primaryKey"`
	LastNonce Uint256        `json:"last_nonce" gorm:"size:78;not null"`
	UpdatedAt time.Time      `json:"updated_at"`
}
