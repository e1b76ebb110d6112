package session

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/philiph/caddy-pub-resolver/internal/core/domain"
	"github.com/philiph/caddy-pub-resolver/internal/core/ports"
)

// CookieDescriptorStore implements DescriptorStore using JWT tokens.
// Tokens are signed with RSA (RS256) and are stateless, so the per-session
// descriptor travels in the session cookie instead of server-side state.
type CookieDescriptorStore struct {
	privateKey *rsa.PrivateKey
	duration   time.Duration
}

// descriptorClaims defines the JWT claims structure for the stored descriptor.
type descriptorClaims struct {
	jwt.RegisteredClaims
	PublicationID  int    `json:"pub_id"`
	PublicationURL string `json:"pub_url"`
	ImageURL       string `json:"img_url,omitempty"`
}

// NewCookieDescriptorStore creates a new JWT-based descriptor store.
func NewCookieDescriptorStore(privateKey *rsa.PrivateKey, duration time.Duration) *CookieDescriptorStore {
	return &CookieDescriptorStore{
		privateKey: privateKey,
		duration:   duration,
	}
}

// Create generates a signed JWT token from the descriptor.
func (s *CookieDescriptorStore) Create(descriptor *domain.PublicationDescriptor) (string, error) {
	now := time.Now()
	claims := descriptorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
		},
		PublicationID:  descriptor.ID,
		PublicationURL: descriptor.PublicationURL,
		ImageURL:       descriptor.ImageURL,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

// Get validates a JWT token and returns the stored descriptor.
func (s *CookieDescriptorStore) Get(token string) (*domain.PublicationDescriptor, error) {
	parsed, err := jwt.ParseWithClaims(token, &descriptorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return &s.privateKey.PublicKey, nil
	})
	if err != nil {
		return nil, ports.ErrDescriptorNotFound
	}

	claims, ok := parsed.Claims.(*descriptorClaims)
	if !ok || !parsed.Valid {
		return nil, ports.ErrDescriptorNotFound
	}

	return &domain.PublicationDescriptor{
		ID:             claims.PublicationID,
		PublicationURL: claims.PublicationURL,
		ImageURL:       claims.ImageURL,
	}, nil
}

// Delete is a no-op for stateless JWT sessions.
// Actual cookie removal happens in the HTTP layer.
func (s *CookieDescriptorStore) Delete(token string) error {
	return nil
}

// LoadPrivateKey loads an RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	// Try PKCS8 first (modern format), then PKCS1 (legacy RSA format)
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return rsaKey, nil
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not RSA")
	}

	return rsaKey, nil
}

// Ensure CookieDescriptorStore implements ports.DescriptorStore
var _ ports.DescriptorStore = (*CookieDescriptorStore)(nil)
