// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired         = "auth.required"
	KeyAuthInvalidToken     = "auth.invalid_token"
	KeyAuthTokenExpired     = "auth.token_expired"
	KeyAuthForbidden        = "auth.forbidden"
	KeyAuthChallengeIssued  = "auth.challenge_issued"
	KeyAuthChallengeMissing = "auth.challenge_missing"
	KeyAuthLoginSuccess     = "auth.login_success"
	KeyAuthBadSignature     = "auth.bad_signature"

	// Organisations
	KeyOrganisationCreated    = "organisation.created"
	KeyOrganisationNotFound   = "organisation.not_found"
	KeyOrganisationAdminAdded = "organisation.admin_added"
	KeyIPTypeAdded            = "ip_type.added"
	KeyIPTypeNotFound         = "ip_type.not_found"
	KeyIPTypeExists           = "ip_type.exists"

	// Marketplaces
	KeyMarketplaceRegistered = "marketplace.registered"
	KeyMarketplaceNotFound   = "marketplace.not_found"
	KeyMarketplaceExists     = "marketplace.exists"
	KeyMarketplaceUnknown    = "marketplace.unknown"

	// Orders
	KeyOrderSubmitted         = "order.submitted"
	KeyOrderApproved          = "order.approved"
	KeyOrderRejected          = "order.rejected"
	KeyOrderNotFound          = "order.not_found"
	KeyOrderMalformed         = "order.malformed"
	KeyOrderInvalidSignature  = "order.invalid_signature"
	KeyOrderSignatureMismatch = "order.signature_mismatch"
	KeyOrderReplayedNonce     = "order.replayed_nonce"
	KeyOrderInvalidState      = "order.invalid_state"

	// Rights tokens
	KeyTokenRegistered = "token.registered"
	KeyTokenNotFound   = "token.not_found"
	KeyIPClaimed       = "token.ip_claimed"
	KeyIPNotFound      = "token.ip_not_found"

	// Registry
	KeyComponentNotFound = "registry.component_not_found"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Requests
	KeyRequestTooLarge = "request.too_large"

	// Generic
	KeyNotFound      = "not_found"
	KeyAlreadyExists = "already_exists"
	KeyInternalError = "internal_error"
)
