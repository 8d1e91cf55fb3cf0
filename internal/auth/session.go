// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// privateKey and publicKey sign and verify guest session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpireSec is seconds until token expiration (0 => never).
	tokenExpireSec int
)

// parseTokenExpireTime converts the configured duration string into
// seconds; "never", "0" and empty all mean no expiry.
func parseTokenExpireTime(duration string) error {
	if duration == "never" || duration == "0" || duration == "" {
		tokenExpireSec = 0
		return nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return fmt.Errorf("failed to parse token expire time: %w", err)
	}
	tokenExpireSec = int(d.Seconds())
	return nil
}

// Init generates a fresh ed25519 key pair at runtime. Sessions do not
// survive a restart, which is fine: rooms don't either.
func Init(tokenExpire string) {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	if err := parseTokenExpireTime(tokenExpire); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}

// InitFromPath reads ed25519 private/public keys from file, for
// deploys that need sessions to survive restarts.
func InitFromPath(privatePath, publicPath, tokenExpire string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	return parseTokenExpireTime(tokenExpire)
}

// CreateJWT creates a signed token with "sub" = the guest connection ID.
func CreateJWT(guestID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": guestID,
	}
	if tokenExpireSec > 0 {
		claims["exp"] = time.Now().Add(time.Duration(tokenExpireSec) * time.Second).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a token string and returns the "sub" field.
func AuthenticateJWT(tokenString string) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})

	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}

	guestID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}

	return guestID, nil
}
