// Package auth issues & verifies the RS256 tokens devices use to talk to the server.
package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/safecall/server/auth/key"
	"github.com/golang-jwt/jwt"
)

const Issuer = "safecall"

type DeviceTokenClaims struct {
	DeviceName string `json:"device_name"`
	jwt.StandardClaims
}

// NewDeviceClaims returns claims for a device that expire after ttl, a ttl <= 0
// never expires
func NewDeviceClaims(deviceName string, now time.Time, ttl time.Duration) DeviceTokenClaims {
	claims := DeviceTokenClaims{
		DeviceName: deviceName,
		StandardClaims: jwt.StandardClaims{
			Issuer:   Issuer,
			Subject:  deviceName,
			IssuedAt: now.Unix(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	return claims
}

func EncodeJWT(claims DeviceTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func DecodeJWT(tokenString string, keyPair *key.KeyPair) (*DeviceTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		// validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return keyPair.PublicKey, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid jwt: %v", err)
	}

	tokenClaims, ok := token.Claims.(*DeviceTokenClaims)
	if !ok {
		return nil, fmt.Errorf("unable to assert token.Claims to DeviceTokenClaims")
	}

	if tokenClaims.Issuer != Issuer {
		return nil, fmt.Errorf("invalid jwt: unexpected issuer '%v'", tokenClaims.Issuer)
	}

	return tokenClaims, nil
}
