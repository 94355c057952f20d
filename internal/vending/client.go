package vending

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vending_client/internal/config"
	"vending_client/internal/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	requestIDHeader = "X-Request-ID"

	pathProducts         = "/api/products"
	pathSelect           = "/api/transaction/products/select/"
	pathUnselect         = "/api/transaction/products/unselect/"
	pathSelected         = "/api/transaction/products/selected"
	pathMoney            = "/api/transaction/money"
	pathMoneyInserted    = "/api/transaction/money/inserted"
	pathCompleteTransact = "/api/transaction/complete"
	pathCancelTransact   = "/api/transaction/cancel"
)

var (
	ErrNotFound       = errors.New("vending resource not found")
	ErrConflict       = errors.New("vending request rejected")
	ErrEmptyProductID = errors.New("product id is required")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api request failed: %s", e.Status)
	}
	return fmt.Sprintf("api request failed: %s: %s", e.Status, e.Body)
}

type Client struct {
	http    *resty.Client
	logger  *zap.Logger
	metrics *metrics.ClientMetrics
}

type retryableKey struct{}

func NewClient(cfg config.Config, logger *zap.Logger, m *metrics.ClientMetrics) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BackendBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// select/unselect are GETs with side effects, so only the pure
			// reads opt in through the request context.
			if resp == nil || resp.Request == nil {
				return false
			}
			if retryable, _ := resp.Request.Context().Value(retryableKey{}).(bool); !retryable {
				return false
			}
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests
		})

	return &Client{
		http:    httpClient,
		logger:  logger.Named("vending"),
		metrics: m,
	}
}

func (c *Client) BaseURL() string {
	return c.http.BaseURL
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.doRead(ctx, "products", pathProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) SelectProduct(ctx context.Context, productID string) error {
	path, err := productPath(pathSelect, productID)
	if err != nil {
		return err
	}
	return c.do(ctx, "select", http.MethodGet, path, nil, nil)
}

func (c *Client) UnselectProduct(ctx context.Context, productID string) error {
	path, err := productPath(pathUnselect, productID)
	if err != nil {
		return err
	}
	return c.do(ctx, "unselect", http.MethodGet, path, nil, nil)
}

func (c *Client) InsertMoney(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() || amount.IsZero() {
		return fmt.Errorf("insert money: amount must be positive, got %s", amount.String())
	}
	return c.do(ctx, "insert_money", http.MethodPost, pathMoney, newMoneyRequest(amount), nil)
}

func (c *Client) InsertedMoney(ctx context.Context) (decimal.Decimal, error) {
	var resp Money
	if err := c.doRead(ctx, "inserted_money", pathMoneyInserted, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.Value, nil
}

func (c *Client) SelectedProducts(ctx context.Context) ([]SelectedProduct, error) {
	var selected []SelectedProduct
	if err := c.doRead(ctx, "selected_products", pathSelected, &selected); err != nil {
		return nil, err
	}
	return selected, nil
}

func (c *Client) CompleteTransaction(ctx context.Context) (Order, error) {
	var order Order
	if err := c.do(ctx, "complete", http.MethodPost, pathCompleteTransact, nil, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Client) CancelTransaction(ctx context.Context) (Order, error) {
	var order Order
	if err := c.do(ctx, "cancel", http.MethodPost, pathCancelTransact, nil, &order); err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Client) doRead(ctx context.Context, endpoint, path string, result any) error {
	return c.do(context.WithValue(ctx, retryableKey{}, true), endpoint, http.MethodGet, path, nil, result)
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body, result any) error {
	requestID := uuid.NewString()
	req := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, requestID)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, 0, elapsed)
		c.logger.Debug("backend request failed",
			zap.String("endpoint", endpoint),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return fmt.Errorf("vending request %s: %w", endpoint, err)
	}

	c.metrics.ObserveRequest(endpoint, resp.StatusCode(), elapsed)
	c.logger.Debug("backend request",
		zap.String("endpoint", endpoint),
		zap.String("method", method),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode()),
		zap.Int64("ms", elapsed.Milliseconds()),
	)
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func productPath(prefix, productID string) (string, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return "", ErrEmptyProductID
	}
	return prefix + url.PathEscape(trimmed), nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case http.StatusConflict, http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", ErrConflict, apiErr)
	default:
		return apiErr
	}
}
