// token.go

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jacl-coder/PixelStorm-Arena/internal/models"
)

// Issuer 令牌签发者
const Issuer = "pixelstorm-arena"

var (
	// ErrEmptySecret 未配置签名密钥
	ErrEmptySecret = errors.New("签名密钥为空")
	// ErrEmptyActor 参与者为空
	ErrEmptyActor = errors.New("参与者为空")
	// ErrInvalidToken 令牌无效或已过期
	ErrInvalidToken = errors.New("无效或已过期的令牌")
)

// Claims 令牌声明
type Claims struct {
	Actor models.ActorID `json:"actor"`
	jwt.RegisteredClaims
}

// Issue 签发HS256令牌
func Issue(secret string, actor models.ActorID, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if actor == models.NoActor {
		return "", ErrEmptyActor
	}

	now := time.Now()
	claims := Claims{
		Actor: actor,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   string(actor),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("签名令牌失败: %w", err)
	}
	return signed, nil
}

// Parse 校验令牌并返回参与者
func Parse(secret, tokenString string) (models.ActorID, error) {
	if secret == "" {
		return models.NoActor, ErrEmptySecret
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	if err != nil {
		return models.NoActor, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Actor == models.NoActor {
		return models.NoActor, ErrInvalidToken
	}
	return claims.Actor, nil
}
