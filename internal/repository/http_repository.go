package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_cart/cartsync/internal/domain"
	"github.com/fjod/go_cart/cartsync/pkg/circuitbreaker"
	"github.com/fjod/go_cart/cartsync/pkg/logger"
)

const (
	DefaultBaseURL = "http://localhost:8000/api/v1"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 1 << 20
)

// HTTPRepository talks to the cart API over JSON/HTTP.
type HTTPRepository struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     *slog.Logger

	breakerCfg *circuitbreaker.Config
}

type Option func(*HTTPRepository)

func WithHTTPClient(c *http.Client) Option {
	return func(r *HTTPRepository) { r.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(r *HTTPRepository) { r.timeout = d }
}

func WithLogger(log *slog.Logger) Option {
	return func(r *HTTPRepository) { r.log = log }
}

// WithBreaker guards calls with a circuit breaker. Only network failures,
// timeouts and 5xx answers count against it.
func WithBreaker(cfg circuitbreaker.Config) Option {
	return func(r *HTTPRepository) { r.breakerCfg = &cfg }
}

func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Retryable()
	}
	return false
}

func NewHTTPRepository(baseURL string, opts ...Option) *HTTPRepository {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	r := &HTTPRepository{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	r.log = logger.OrDefault(r.log).With("component", "cart_api_client")
	if r.breakerCfg != nil {
		cfg := *r.breakerCfg
		cfg.IsSuccessful = breakerSuccess
		r.breaker = circuitbreaker.New[[]byte](cfg, r.log)
	}
	return r
}

var _ CartRepository = (*HTTPRepository)(nil)

func (r *HTTPRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.cart(ctx, sessionID, http.MethodGet, "/cart", sessionQuery(sessionID), nil)
}

func (r *HTTPRepository) AddItem(ctx context.Context, sessionID, productID string, quantity int) (*domain.Cart, error) {
	body := AddItemRequest{SessionID: sessionID, ProductID: productID, Quantity: quantity}
	return r.cart(ctx, sessionID, http.MethodPost, "/cart/items", nil, body)
}

func (r *HTTPRepository) UpdateItemQuantity(ctx context.Context, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	body := UpdateQuantityRequest{Quantity: quantity}
	return r.cart(ctx, sessionID, http.MethodPut, itemPath(itemID), sessionQuery(sessionID), body)
}

func (r *HTTPRepository) RemoveItem(ctx context.Context, sessionID, itemID string) (*domain.Cart, error) {
	return r.cart(ctx, sessionID, http.MethodDelete, itemPath(itemID), sessionQuery(sessionID), nil)
}

func (r *HTTPRepository) ClearCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return r.cart(ctx, sessionID, http.MethodDelete, "/cart", sessionQuery(sessionID), nil)
}

func (r *HTTPRepository) cart(ctx context.Context, sessionID, method, path string, query url.Values, body any) (*domain.Cart, error) {
	data, err := r.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		// 204 from clear
		return domain.NewCart("", sessionID), nil
	}

	var dto domain.CartDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}
	cart, err := domain.FromAPI(dto)
	if err != nil {
		return nil, fmt.Errorf("decode cart response: %w", err)
	}
	return cart, nil
}

func (r *HTTPRepository) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := r.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	call := func() ([]byte, error) {
		return r.send(ctx, method, target, body)
	}
	if r.breaker == nil {
		return call()
	}

	data, err := r.breaker.Execute(call)
	if circuitbreaker.IsOpen(err) {
		return nil, &APIError{Status: StatusNetwork, Message: "circuit breaker open", URL: target, Err: err}
	}
	return data, err
}

func (r *HTTPRepository) send(ctx context.Context, method, target string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &APIError{Status: http.StatusRequestTimeout, Message: "request timed out", URL: target, Err: err}
		}
		return nil, &APIError{Status: StatusNetwork, Message: err.Error(), URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &APIError{Status: http.StatusRequestTimeout, Message: "request timed out", URL: target, Err: err}
		}
		return nil, &APIError{Status: StatusNetwork, Message: "read response: " + err.Error(), URL: target, Err: err}
	}

	r.log.DebugContext(ctx, "cart api call",
		"method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.StatusCode), URL: target}
	}
	return data, nil
}

func sessionQuery(sessionID string) url.Values {
	return url.Values{"session_id": []string{sessionID}}
}

func itemPath(itemID string) string {
	return "/cart/items/" + url.PathEscape(itemID)
}
