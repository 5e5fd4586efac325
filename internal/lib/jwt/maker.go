// Package jwt реализует выпуск и разбор токенов сессии шлюза.
//
// Maker определяет интерфейс для создания и проверки токенов. MakerImpl
// реализует его на HS256 с секретным ключом и сроком жизни.
package jwt

import (
	"time"

	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

// Maker описывает интерфейс для генерации и разбора токенов сессии.
type Maker interface {
	// GenerateToken подписывает токен с данными сессии.
	GenerateToken(session models.Session) (string, error)
	// ParseToken проверяет подпись и срок жизни и возвращает claims.
	ParseToken(tokenStr string) (*SessionClaims, error)
	// Decode возвращает сессию или nil, если токен нельзя использовать.
	Decode(tokenStr string) *models.Session
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
