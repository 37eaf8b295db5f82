// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/patrickmn/go-cache"

	"github.com/civicledger/IPRx-Core/internal/config"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

var ErrChallengeExpired = errors.New("login challenge missing or expired")

// AuthService issues wallet login challenges and exchanges a signed
// challenge for an access token.
type AuthService struct {
	cfg        *config.Config
	orgs       *OrganisationService
	challenges *cache.Cache
	redeemMu   sync.Mutex
}

type ChallengeRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type ChallengeResponse struct {
	Address   common.Address `json:"address"`
	Message   string         `json:"message"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type LoginRequest struct {
	Address   string `json:"address" validate:"required,eth_addr"`
	Signature string `json:"signature" validate:"required,wallet_signature"`
}

type AuthResponse struct {
	Address     common.Address `json:"address"`
	Role        models.Role    `json:"role"`
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int            `json:"expires_in"` // in seconds
}

type Identity struct {
	Address       common.Address `json:"address"`
	Role          models.Role    `json:"role"`
	AdminOf       []uint64       `json:"admin_of"`
	IsGlobalOwner bool           `json:"is_global_owner"`
}

func NewAuthService(cfg *config.Config, orgs *OrganisationService) *AuthService {
	ttl := time.Duration(cfg.JWT.ChallengeTTL) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AuthService{
		cfg:        cfg,
		orgs:       orgs,
		challenges: cache.New(ttl, 2*ttl),
	}
}

// Challenge creates the message the wallet must sign to log in. A new
// challenge replaces any outstanding one for the same address.
func (s *AuthService) Challenge(req *ChallengeRequest) (*ChallengeResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	addr := common.HexToAddress(req.Address)

	nonce, err := utils.GenerateChallengeNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ChallengeTTL) * time.Second)
	message := fmt.Sprintf("Sign in to IPRx\nAddress: %s\nNonce: %s\nExpires: %s",
		addr.Hex(), nonce, expiresAt.UTC().Format(time.RFC3339))
	s.challenges.Set(challengeKey(addr), message, cache.DefaultExpiration)

	return &ChallengeResponse{
		Address:   addr,
		Message:   message,
		ExpiresAt: expiresAt,
	}, nil
}

// Login verifies a personal_sign signature over the outstanding challenge.
// A challenge can be used once.
func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	addr := common.HexToAddress(req.Address)

	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if err := s.redeemChallenge(addr, sig); err != nil {
		return nil, err
	}

	role := s.RoleOf(addr)
	token, _, err := utils.GenerateJWT(addr, string(role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		Address:     addr,
		Role:        role,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}

// redeemChallenge checks sig against the outstanding challenge for addr and
// removes it in the same critical section, so only one login can use it.
// A failed check leaves the challenge in place.
func (s *AuthService) redeemChallenge(addr common.Address, sig []byte) error {
	s.redeemMu.Lock()
	defer s.redeemMu.Unlock()

	cached, ok := s.challenges.Get(challengeKey(addr))
	if !ok {
		return ErrChallengeExpired
	}
	signer, err := RecoverPersonalSigner(cached.(string), sig)
	if err != nil {
		return err
	}
	if signer != addr {
		return fmt.Errorf("%w: signature is not from %s", models.ErrUnauthorized, addr.Hex())
	}
	s.challenges.Delete(challengeKey(addr))
	return nil
}

func (s *AuthService) RoleOf(addr common.Address) models.Role {
	if addr == s.cfg.Ledger.Owner() {
		return models.RoleOwner
	}
	return models.RoleMember
}

func (s *AuthService) Me(ctx context.Context, addr common.Address) (*Identity, error) {
	adminOf, err := s.orgs.AdminOf(ctx, addr)
	if err != nil {
		return nil, err
	}
	if adminOf == nil {
		adminOf = []uint64{}
	}
	role := s.RoleOf(addr)
	return &Identity{
		Address:       addr,
		Role:          role,
		AdminOf:       adminOf,
		IsGlobalOwner: role == models.RoleOwner,
	}, nil
}

// RecoverPersonalSigner recovers the signer of an EIP-191 personal message.
// v may be 0/1 or 27/28.
func RecoverPersonalSigner(message string, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: signature must be %d bytes", models.ErrInvalidSignature, crypto.SignatureLength)
	}
	raw := make([]byte, crypto.SignatureLength)
	copy(raw, sig)
	if raw[64] >= 27 {
		raw[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", models.ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func challengeKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
