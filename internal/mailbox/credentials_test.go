package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestSealUnsealToken(t *testing.T) {
	key := "test-credentials-key-32-chars!!"

	t.Run("round trips a token", func(t *testing.T) {
		tok := &oauth2.Token{AccessToken: "access-abc", RefreshToken: "refresh-xyz"}

		sealed, err := sealToken(key, tok)
		require.NoError(t, err)
		assert.NotEmpty(t, sealed)
		assert.NotContains(t, sealed, "refresh-xyz")

		unsealed, err := unsealToken(key, sealed)
		require.NoError(t, err)
		assert.Equal(t, tok.AccessToken, unsealed.AccessToken)
		assert.Equal(t, tok.RefreshToken, unsealed.RefreshToken)
	})

	t.Run("rejects the wrong key", func(t *testing.T) {
		sealed, err := sealToken(key, &oauth2.Token{RefreshToken: "refresh-xyz"})
		require.NoError(t, err)

		_, err = unsealToken("a-completely-different-key!!!!!", sealed)
		assert.Error(t, err)
	})

	t.Run("requires a non-empty key", func(t *testing.T) {
		_, err := sealToken("", &oauth2.Token{RefreshToken: "refresh-xyz"})
		assert.Error(t, err)
	})

	t.Run("rejects malformed sealed input", func(t *testing.T) {
		_, err := unsealToken(key, "not-valid-hex!!")
		assert.Error(t, err)
	})
}
