package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
)

// NewFrontendProxy проксирует страницы на сервер отрисовки интерфейса.
func NewFrontendProxy(target string, log *slog.Logger) (http.Handler, error) {
	const op = "gateway.NewFrontendProxy"

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: frontend url %q must be absolute", op, target)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("frontend is unavailable",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy, nil
}
