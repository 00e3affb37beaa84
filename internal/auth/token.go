// Package auth токены сервиса аккаунтов и токены привязки Telegram
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Freeeeeet/coach_scheduler/internal/model"
)

const purposeTelegramLink = "telegram_link"

var ErrInvalidToken = errors.New("invalid token")

// Claims полезная нагрузка токена. sub содержит ID пользователя
type Claims struct {
	Role      model.Role `json:"role,omitempty"`
	Email     string     `json:"email,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Purpose   string     `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Identity участник из токена доступа
type Identity struct {
	Actor     model.Actor
	Email     string
	FirstName string
	LastName  string
}

type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue подписывает токен доступа. Нужен для dev-окружения и тестов,
// в проде токены выдаёт сервис аккаунтов
func (t *Tokens) Issue(userID int64, role model.Role, ttl time.Duration) (string, error) {
	now := t.now()
	return t.sign(Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

// IssueLinkToken токен для /start в боте
func (t *Tokens) IssueLinkToken(userID int64, ttl time.Duration) (string, error) {
	now := t.now()
	return t.sign(Claims{
		Purpose: purposeTelegramLink,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
}

func (t *Tokens) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(raw string) (*Claims, int64, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, 0, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return claims, userID, nil
}

// ParseAccess проверяет токен доступа и возвращает участника
func (t *Tokens) ParseAccess(raw string) (*Identity, error) {
	claims, userID, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	if claims.Role != model.RoleCoach && claims.Role != model.RoleMentee {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &Identity{
		Actor:     model.Actor{UserID: userID, Role: claims.Role},
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, nil
}

// ParseLinkToken ID пользователя из токена привязки Telegram
func (t *Tokens) ParseLinkToken(raw string) (int64, error) {
	claims, userID, err := t.parse(raw)
	if err != nil {
		return 0, err
	}
	if claims.Purpose != purposeTelegramLink {
		return 0, fmt.Errorf("%w: not a link token", ErrInvalidToken)
	}
	return userID, nil
}
