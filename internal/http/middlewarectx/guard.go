package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/fintrack-gateway/internal/metrics"
	"github.com/magabrotheeeer/fintrack-gateway/internal/routeguard"
)

// RouteGuard пропускает запрос к странице или перенаправляет его по решению policy.
// Неверный или просроченный токен не даёт ошибку, пользователь считается анонимным.
func RouteGuard(decoder Decoder, policy routeguard.Policy, cookieName string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RouteGuard"

			path := r.URL.Path
			if policy.Classify(path) == routeguard.ClassBypass {
				metrics.GuardDecisions.WithLabelValues("allow", routeguard.ReasonBypass).Inc()
				next.ServeHTTP(w, r)
				return
			}

			session := decoder.Decode(Credential(r, cookieName))
			decision := policy.Decide(path, session)
			if decision.Allow {
				metrics.GuardDecisions.WithLabelValues("allow", decision.Reason).Inc()
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
				return
			}

			metrics.GuardDecisions.WithLabelValues("redirect", decision.Reason).Inc()
			log.Debug("redirecting page request",
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("path", path),
				slog.String("to", decision.RedirectTo),
				slog.String("reason", decision.Reason),
			)
			http.Redirect(w, r, decision.RedirectTo, http.StatusTemporaryRedirect)
		})
	}
}
