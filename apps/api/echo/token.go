package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

const tokenType = "bearer"

var (
	// errors
	ErrTokenMissing   = errors.New("missing or malformed token")
	ErrTokenInvalid   = errors.New("could not validate credentials")
	ErrTokenExpired   = errors.New("token has expired")
	ErrUnknownSubject = errors.New("token subject not found")
)

// TokenService issues and verifies HS256 access tokens whose subject is the user's email.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenService(conf *core.Config) *TokenService {
	return &TokenService{
		secret: []byte(conf.SecretKey),
		issuer: conf.AppName,
		ttl:    conf.Server.JWTExpirationDelta,
	}
}

func (ts *TokenService) Generate(usr user.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    ts.issuer,
		Subject:   usr.Email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// Parse returns the subject of a valid token.
func (ts *TokenService) Parse(tokenStr string) (string, error) {
	claims := new(jwt.RegisteredClaims)
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return ts.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired
	case err != nil:
		return "", ErrTokenInvalid
	case claims.Subject == "":
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}
