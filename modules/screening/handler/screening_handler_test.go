package handler

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupScreeningRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewScreeningHandler(nil, secret)
	router.POST("/screening/webhook/external", h.webhook)
	return router
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// TestScreeningHandler_Webhook_SignatureVerification exercises the HMAC
// check, which must reject (and never reach the nil service) before any
// payload is parsed.
func TestScreeningHandler_Webhook_SignatureVerification(t *testing.T) {
	t.Run("rejects a missing signature", func(t *testing.T) {
		router := setupScreeningRouter("shh-secret")
		body := []byte(`{"type":"post_call_transcription"}`)

		req := httptest.NewRequest(http.MethodPost, "/screening/webhook/external", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a wrong signature", func(t *testing.T) {
		router := setupScreeningRouter("shh-secret")
		body := []byte(`{"type":"post_call_transcription"}`)

		req := httptest.NewRequest(http.MethodPost, "/screening/webhook/external", bytes.NewReader(body))
		req.Header.Set("X-Signature", "not-the-right-signature")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects malformed json even with a correct signature", func(t *testing.T) {
		secret := "shh-secret"
		router := setupScreeningRouter(secret)
		body := []byte(`not json`)

		req := httptest.NewRequest(http.MethodPost, "/screening/webhook/external", bytes.NewReader(body))
		req.Header.Set("X-Signature", sign(secret, body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("skips verification entirely when no secret is configured", func(t *testing.T) {
		router := setupScreeningRouter("")
		body := []byte(`not json either`)

		req := httptest.NewRequest(http.MethodPost, "/screening/webhook/external", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// no signature required, but the body still fails to parse before
		// the (nil) service would ever be reached.
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
