package middleware

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/aq2208/gstore-api/internal/logging"
	"github.com/aq2208/gstore-api/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	SignatureHeader = "X-Signature"
	maxSignedBody   = 64 * 1024
)

// VerifySignature rejects requests whose body is not signed by the gateway key.
// The header carries base64(RSA-SHA256(body)).
func VerifySignature(v security.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSignedBody+1))
		if err != nil || len(rawBody) > maxSignedBody {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}
		_ = c.Request.Body.Close()

		sig, err := base64.StdEncoding.DecodeString(c.GetHeader(SignatureHeader))
		if err != nil || len(sig) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed signature"})
			return
		}
		if err := v.Verify(rawBody, sig); err != nil {
			logging.From(c).Warn("webhook signature rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))
		c.Request.ContentLength = int64(len(rawBody))
		c.Next()
	}
}
