// internal/codec/signature.go
package codec

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sign signs the order hash with key and returns the signed order. The
// signature is over the raw hash, without a message prefix, and v is 27 or 28.
func Sign(o Order, key *ecdsa.PrivateKey) (*SignedOrder, error) {
	hash := o.Hash()
	sig, err := crypto.Sign(hash.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("codec.Sign: %w", err)
	}
	return &SignedOrder{
		Order: o,
		Signature: Signature{
			V: sig[64] + 27,
			R: common.BytesToHash(sig[:32]),
			S: common.BytesToHash(sig[32:64]),
		},
	}, nil
}

// Recover returns the address that produced sig over hash. v may be given
// as 0/1 or 27/28. High-s signatures are rejected.
func Recover(hash common.Hash, sig Signature) (common.Address, error) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig.V)
	}

	r := sig.R.Big()
	s := sig.S.Big()
	if !crypto.ValidateSignatureValues(v, r, s, true) {
		return common.Address{}, fmt.Errorf("%w: r or s out of range", ErrInvalidSignature)
	}

	raw := make([]byte, crypto.SignatureLength)
	copy(raw[:32], sig.R.Bytes())
	copy(raw[32:64], sig.S.Bytes())
	raw[64] = v

	pub, err := crypto.SigToPub(hash.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	addr := crypto.PubkeyToAddress(*pub)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: recovered zero address", ErrInvalidSignature)
	}
	return addr, nil
}

// Signer recovers the address that signed so's payload.
func (so *SignedOrder) Signer() (common.Address, error) {
	return Recover(so.Order.Hash(), so.Signature)
}
