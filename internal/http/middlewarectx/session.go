// Package middlewarectx содержит HTTP middleware шлюза: разбор сессии из cookie
// или заголовка Authorization, защиту страниц, проверку ролей и ограничение частоты.
//
// Сессия кладётся в контекст запроса и читается обработчиками через SessionFromContext.
// Токен сессии дополнительно передаётся во внешний API через apiclient.WithToken.
package middlewarectx

import (
	"context"
	"net/http"
	"strings"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// SessionKey ключ сессии в контексте.
const SessionKey Key = "session"

// Decoder превращает токен в сессию, nil означает анонимного пользователя.
type Decoder interface {
	Decode(tokenStr string) *models.Session
}

// Credential достаёт токен: сначала cookie сессии, затем Bearer-заголовок.
func Credential(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && strings.TrimSpace(c.Value) != "" {
			return strings.TrimSpace(c.Value)
		}
	}
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > len("Bearer ") && strings.EqualFold(authHeader[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}

// WithSession кладёт сессию и её токен в контекст.
func WithSession(ctx context.Context, s *models.Session) context.Context {
	if s == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, SessionKey, s)
	return apiclient.WithToken(ctx, s.Token)
}

// SessionFromContext возвращает сессию запроса или nil.
func SessionFromContext(ctx context.Context) *models.Session {
	s, _ := ctx.Value(SessionKey).(*models.Session)
	return s
}

// Authenticate декодирует сессию и кладёт её в контекст. Запрос без сессии
// проходит дальше анонимным, отказ выносится в RequireSession.
func Authenticate(decoder Decoder, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := decoder.Decode(Credential(r, cookieName))
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}
