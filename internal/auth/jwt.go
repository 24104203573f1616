package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("令牌无效或已过期")

// Claims JWT 载荷，携带 Principal 的全部信息
type Claims struct {
	Kind         string `json:"kind"`
	RestaurantID int64  `json:"restaurant_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateToken 签发 Principal 令牌
func GenerateToken(secret string, ttl time.Duration, p Principal, now time.Time) (string, error) {
	claims := &Claims{
		Kind:         p.Kind,
		RestaurantID: p.RestaurantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 校验令牌并还原 Principal
func ParseToken(secret, tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("不支持的签名算法: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	switch claims.Kind {
	case KindUser, KindOperator, KindAdmin:
	default:
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		Kind:         claims.Kind,
		UserID:       userID,
		RestaurantID: claims.RestaurantID,
	}, nil
}
