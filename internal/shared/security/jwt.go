package security

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"Underworld/internal/shared/types"
)

var ErrJWTSecretMissing = errors.New("JWT_SECRET is not set")

const (
	RolePlayer    = "player"
	RoleScheduler = "scheduler" // 每日结算等系统任务
)

const defaultTTL = 7 * 24 * time.Hour

type Claims struct {
	PlayerID types.PlayerID `json:"pid"`
	Name     string         `json:"name,omitempty"`
	Role     string         `json:"role"`
	jwt.RegisteredClaims
}

// Issuer 负责签发与校验 HS256 token。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer secret 为空时回退到环境变量 JWT_SECRET。
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return nil, ErrJWTSecretMissing
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *Issuer) Award(pid types.PlayerID, name, role string) (string, error) {
	now := i.now()
	claims := &Claims{
		PlayerID: pid,
		Name:     name,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pid.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse 解析并校验 token。
func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if token == nil || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
