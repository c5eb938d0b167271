package auth

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

const tokenIssuer = "finledger"

// Claims is what a verified token says about its bearer.
type Claims struct {
	Email     string
	UserID    string
	ExpiresAt time.Time
}

type privateClaims struct {
	UserID string `json:"uid"`
}

// TokenIssuer signs and verifies HS256 JWTs.
type TokenIssuer struct {
	key    []byte
	ttl    time.Duration
	signer jose.Signer
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. The HMAC key is derived from secret so
// that any non-empty secret yields a full length key.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	sum := sha256.Sum256([]byte(secret))
	key := sum[:]

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create token signer: %w", err)
	}
	return &TokenIssuer{key: key, ttl: ttl, signer: signer, now: time.Now}, nil
}

// Issue signs a token for email and userID valid for the issuer's ttl.
func (ti *TokenIssuer) Issue(email, userID string) (string, error) {
	now := ti.now()
	std := jwt.Claims{
		Issuer:   tokenIssuer,
		Subject:  email,
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(ti.ttl)),
	}
	raw, err := jwt.Signed(ti.signer).Claims(std).Claims(privateClaims{UserID: userID}).Serialize()
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return raw, nil
}

// Parse verifies a token's signature, issuer and expiry.
func (ti *TokenIssuer) Parse(raw string) (*Claims, error) {
	tok, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	var std jwt.Claims
	var priv privateClaims
	if err := tok.Claims(ti.key, &std, &priv); err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Issuer: tokenIssuer, Time: ti.now()}, 0); err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	if std.Subject == "" || std.Expiry == nil {
		return nil, fmt.Errorf("validate token: missing subject or expiry")
	}

	return &Claims{Email: std.Subject, UserID: priv.UserID, ExpiresAt: std.Expiry.Time()}, nil
}
