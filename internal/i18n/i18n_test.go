package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, "Order nonce has already been used", T("en", KeyOrderReplayedNonce))
	assert.Equal(t, "訂單已核准", T("zh_TW", KeyOrderApproved))
	assert.Equal(t, "Invalid input", T("en", KeyValidationInvalid, "input"))

	// Unknown languages fall back to English, unknown keys to the key.
	assert.Equal(t, "Order approved", T("fr", KeyOrderApproved))
	assert.Equal(t, "missing.key", T("en", "missing.key"))

	assert.ElementsMatch(t, []string{"en", "zh_TW"}, GetSupportedLanguages())
}
