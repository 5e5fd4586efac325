package jwt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/fintrack-gateway/internal/models"
)

// PlanClaim тариф в токене. Провайдер сессии кладёт его либо строкой,
// либо объектом {slug, name}.
type PlanClaim struct {
	Slug string `json:"slug,omitempty"`
	Name string `json:"name,omitempty"`
}

// UnmarshalJSON принимает строку или объект.
func (p *PlanClaim) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Name = s
		return nil
	}
	type plain PlanClaim
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*p = PlanClaim(obj)
	return nil
}

// SessionClaims данные сессии, хранящиеся в токене.
type SessionClaims struct {
	ID                   string     `json:"id,omitempty"`       // Идентификатор пользователя
	Role                 string     `json:"role,omitempty"`     // Роль пользователя
	Plan                 *PlanClaim `json:"plan,omitempty"`     // Тариф строкой или объектом
	PlanSlug             string     `json:"planSlug,omitempty"` // Slug тарифа
	jwt.RegisteredClaims            // Стандартные claims (sub, exp, iat)
}

// UserID возвращает id, а при его отсутствии sub.
func (c *SessionClaims) UserID() string {
	if id := strings.TrimSpace(c.ID); id != "" {
		return id
	}
	return strings.TrimSpace(c.Subject)
}

// ResolvePlan возвращает тариф в порядке plan.slug, planSlug, plan строкой, plan.name.
func (c *SessionClaims) ResolvePlan() *string {
	candidates := make([]string, 0, 3)
	if c.Plan != nil {
		candidates = append(candidates, c.Plan.Slug)
	}
	candidates = append(candidates, c.PlanSlug)
	if c.Plan != nil {
		candidates = append(candidates, c.Plan.Name)
	}
	for _, candidate := range candidates {
		if s := strings.TrimSpace(candidate); s != "" {
			return &s
		}
	}
	return nil
}

// GenerateToken создаёт токен с данными сессии, подписывая его секретным ключом.
//
// Время жизни токена определяется полем tokenTTL.
func (j *MakerImpl) GenerateToken(session models.Session) (string, error) {
	claims := SessionClaims{
		ID:   session.UserID,
		Role: string(session.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.tokenTTL)),
		},
	}
	if session.PlanSlug != nil {
		claims.PlanSlug = *session.PlanSlug
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken парсит токен, проверяет подпись, алгоритм и срок жизни,
// возвращает SessionClaims, если токен корректен.
func (j *MakerImpl) ParseToken(tokenStr string) (*SessionClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}

// Decode сворачивает результат ParseToken в наличие или отсутствие сессии.
// Любая ошибка разбора и токен без идентификатора пользователя дают nil.
func (j *MakerImpl) Decode(tokenStr string) *models.Session {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil
	}
	claims, err := j.ParseToken(tokenStr)
	if err != nil {
		return nil
	}
	userID := claims.UserID()
	if userID == "" {
		return nil
	}
	return &models.Session{
		UserID:   userID,
		Role:     models.ParseRole(claims.Role),
		PlanSlug: claims.ResolvePlan(),
		Token:    tokenStr,
	}
}
