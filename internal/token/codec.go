package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token expired")
	ErrTokenGeneration  = errors.New("token generation failed")
)

// Claims is the claim set carried by every signed token: a unique token
// identifier (jti), the subject, and the expiry/issued-at pair.
type Claims struct {
	jwt.RegisteredClaims
}

// Codec creates and verifies compact RS256-signed tokens. The key pair is
// read-only after construction and safe for concurrent use.
type Codec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
}

// NewCodec builds a codec from a PEM-encoded RSA private key (PKCS#1 or PKCS#8).
func NewCodec(privateKeyPEM []byte, issuer string) (*Codec, error) {
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		return nil, errors.New("no PEM block found in private key")
	}

	var key *rsa.PrivateKey
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		key = k
	} else if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not an RSA key")
		}
		key = rsaKey
	} else {
		return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
	}

	return &Codec{privateKey: key, publicKey: &key.PublicKey, issuer: issuer}, nil
}

// NewCodecFromFile builds a codec from a PEM key file. When path is empty an
// ephemeral key pair is generated; tokens will not survive a restart.
func NewCodecFromFile(path, issuer string) (*Codec, error) {
	if path == "" {
		return GenerateCodec(issuer)
	}
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token key file: %w", err)
	}
	return NewCodec(pemBytes, issuer)
}

// GenerateCodec creates a codec with a fresh 2048-bit RSA key pair.
func GenerateCodec(issuer string) (*Codec, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return &Codec{privateKey: key, publicKey: &key.PublicKey, issuer: issuer}, nil
}

// Create mints a signed token for the given subject. A fresh unique token
// identifier (jti) is generated; the caller persists metadata under that id.
func (c *Codec) Create(subject string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			Issuer:    c.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}
	return signed, nil
}

// Decode parses the token's claims WITHOUT verifying the signature. It exists
// solely to extract the token identifier for store lookups; any trust decision
// must go through Verify.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ID == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

// Verify checks the signature and expiry using the public verification key.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return c.publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	return claims, nil
}

// PublicKeyPEM returns the PEM encoding of the verification key, for export to
// resource servers that verify tokens locally.
func (c *Codec) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(c.publicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
