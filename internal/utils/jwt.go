package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrTokenExpired and ErrTokenInvalid are the two ways a bearer token
// can fail verification.  Callers distinguish them to tell clients
// whether logging in again will help.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp as a time.Time.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// AdminClaims is the payload of an admin access token.  The admin_id,
// username and store_id claims identify the staff member and the store
// they may operate on; the registered claims carry exp and iat.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	StoreID  uint64 `json:"store_id"`
	jwt.RegisteredClaims
}

// NewAdminToken builds and signs an HS256 JWT for an admin.  The token
// expires ttl after now.  Subject is set to the admin ID so generic
// middleware keyed on "sub" keeps working.
func NewAdminToken(secret string, adminID uint64, username string, storeID uint64, ttl time.Duration, now time.Time) (AccessToken, error) {
	now = now.UTC()
	exp := now.Add(ttl)
	claims := AdminClaims{
		AdminID:  adminID,
		Username: username,
		StoreID:  storeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(adminID, 10),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAdminToken verifies signature, algorithm and expiry of raw and
// returns its claims.  Expired tokens yield ErrTokenExpired, every other
// failure ErrTokenInvalid.
func ParseAdminToken(secret, raw string, now func() time.Time) (AdminClaims, error) {
	var claims AdminClaims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AdminClaims{}, ErrTokenExpired
		}
		return AdminClaims{}, ErrTokenInvalid
	}
	if !tok.Valid || claims.AdminID == 0 {
		return AdminClaims{}, ErrTokenInvalid
	}
	return claims, nil
}
