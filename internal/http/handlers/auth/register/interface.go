package register

import (
	"context"
	"time"

	"github.com/magabrotheeeer/fintrack-gateway/internal/apiclient"
)

// Forwarder передаёт тело запроса во внешний сервис без разбора.
type Forwarder interface {
	Forward(ctx context.Context, method, path string, body []byte, timeout time.Duration) (*apiclient.ForwardResponse, error)
}
