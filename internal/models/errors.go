// internal/models/errors.go
package models

import (
	"errors"

	"github.com/civicledger/IPRx-Core/internal/codec"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMalformedOrder     = codec.ErrMalformedOrder
	ErrInvalidSignature   = codec.ErrInvalidSignature
	ErrSignatureMismatch  = errors.New("signer does not match order taker")
	ErrUnknownMarketplace = errors.New("marketplace is not registered")
	ErrReplayedNonce      = errors.New("nonce already used")
	ErrInvalidState       = errors.New("invalid order state")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
)
