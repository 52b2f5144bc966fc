package memes

import (
	"crypto/hmac"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	stowrysign "github.com/sagarc03/stowry-go"
)

const (
	// MaxExpiresSeconds is the longest validity of a presigned URL (7 days).
	MaxExpiresSeconds = 604800
	// maxClockSkew tolerates signing hosts whose clock runs ahead.
	maxClockSkew = 5 * time.Minute
)

// URLSigner issues and verifies presigned GET URLs using the stowry query
// signing scheme (X-Stowry-Credential, X-Stowry-Date, X-Stowry-Expires,
// X-Stowry-Signature). It backs stores that have no native presigning.
type URLSigner struct {
	accessKey string
	secretKey string
	expires   int64
}

// NewURLSigner creates a signer whose URLs stay valid for expires.
func NewURLSigner(accessKey, secretKey string, expires time.Duration) (*URLSigner, error) {
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("new url signer: %w: access key and secret key are required", ErrInvalidInput)
	}
	secs := int64(expires / time.Second)
	if secs <= 0 || secs > MaxExpiresSeconds {
		return nil, fmt.Errorf("new url signer: %w: expires must be between 1s and %ds", ErrInvalidInput, MaxExpiresSeconds)
	}
	return &URLSigner{accessKey: accessKey, secretKey: secretKey, expires: secs}, nil
}

// Sign returns the query parameters authorizing a GET of path at the current time.
func (s *URLSigner) Sign(path string) url.Values {
	timestamp := time.Now().Unix()
	sig := stowrysign.Sign(s.secretKey, http.MethodGet, path, timestamp, s.expires)

	query := url.Values{}
	query.Set(stowrysign.StowryCredentialParam, s.accessKey)
	query.Set(stowrysign.StowryDateParam, strconv.FormatInt(timestamp, 10))
	query.Set(stowrysign.StowryExpiresParam, strconv.FormatInt(s.expires, 10))
	query.Set(stowrysign.StowrySignatureParam, sig)
	return query
}

// Verify checks that query carries a valid, unexpired signature for method
// and path. Every failure wraps ErrUnauthorized.
func (s *URLSigner) Verify(method, path string, query url.Values) error {
	credential := query.Get(stowrysign.StowryCredentialParam)
	dateStr := query.Get(stowrysign.StowryDateParam)
	expiresStr := query.Get(stowrysign.StowryExpiresParam)
	signature := query.Get(stowrysign.StowrySignatureParam)

	if credential == "" || dateStr == "" || expiresStr == "" || signature == "" {
		return fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	timestamp, err := strconv.ParseInt(dateStr, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid date: %w", ErrUnauthorized)
	}

	expires, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return fmt.Errorf("invalid expires: %w", ErrUnauthorized)
	}

	now := time.Now()
	signedAt := time.Unix(timestamp, 0)
	if signedAt.After(now.Add(maxClockSkew)) {
		return fmt.Errorf("request date in the future: %w", ErrUnauthorized)
	}
	if now.After(signedAt.Add(time.Duration(expires) * time.Second)) {
		return fmt.Errorf("request expired: %w", ErrUnauthorized)
	}

	if credential != s.accessKey {
		return fmt.Errorf("invalid access key: %w", ErrUnauthorized)
	}

	expected := stowrysign.Sign(s.secretKey, method, path, timestamp, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}
