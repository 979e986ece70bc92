package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HTTPGateway asks the payment microservice for a hosted payment page.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPGateway(baseURL string, timeout time.Duration, l *zap.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.OrNop(l),
	}
}

type paymentRequest struct {
	Amount  json.Number `json:"amount"`
	OrderID string      `json:"orderId"`
}

type paymentResponse struct {
	URL string `json:"url"`
}

// RedirectURL sends the amount as a plain decimal; unit conversion is the
// service's business.
func (g *HTTPGateway) RedirectURL(ctx context.Context, amount decimal.Decimal, orderID string) (string, error) {
	body, err := json.Marshal(paymentRequest{
		Amount:  json.Number(amount.String()),
		OrderID: orderID,
	})
	if err != nil {
		return "", fmt.Errorf("encode payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payment", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request payment url: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read payment response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.WithTrace(ctx, g.logger).Warn("payment service rejected request",
			zap.Int("status", resp.StatusCode),
			zap.String("order_id", orderID))
		return "", fmt.Errorf("request payment url failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out paymentResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode payment response: %w", err)
	}
	if out.URL == "" {
		return "", ErrNoRedirectURL
	}
	return out.URL, nil
}
