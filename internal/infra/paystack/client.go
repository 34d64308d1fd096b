package paystack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

var (
	ErrInitializeFailed = errors.New("paystack initialization failed")
	ErrVerifyFailed     = errors.New("paystack verification failed")
)

// Gateway is the payment-provider surface the services depend on.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*VerifyResponse, error)
}

// InitializeRequest carries the major-unit amount; the client owns the
// conversion to kobo.
type InitializeRequest struct {
	Email       string
	Amount      float64
	CallbackURL string
	Reference   string
	Metadata    map[string]any
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// VerifyResponse reports the provider's view of a transaction. Amount is in
// kobo, as returned by the API.
type VerifyResponse struct {
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

var _ Gateway = (*Client)(nil)

func New(baseURL, secretKey string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(secretKey).
		SetRetryCount(0) // single attempt; failures surface to the caller

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "paystack",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(log.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	})

	return &Client{http: httpClient, breaker: breaker}
}

func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResponse, error) {
	body := map[string]any{
		"email":        req.Email,
		"amount":       int64(math.Ceil(req.Amount * 100)),
		"callback_url": req.CallbackURL,
	}
	if req.Reference != "" {
		body["reference"] = req.Reference
	}
	if req.Metadata != nil {
		body["metadata"] = req.Metadata
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out envelope[InitializeResponse]
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&out).
			SetError(&out).
			Post("/transaction/initialize")
		if err != nil {
			return nil, err
		}
		if resp.IsError() || !out.Status {
			return nil, fmt.Errorf("%w: %s", ErrInitializeFailed, providerMessage(resp, out.Message))
		}
		return &out.Data, nil
	})
	if err != nil {
		if errors.Is(err, ErrInitializeFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInitializeFailed, err)
	}
	return result.(*InitializeResponse), nil
}

func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var out envelope[VerifyResponse]
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&out).
			SetError(&out).
			Get("/transaction/verify/" + reference)
		if err != nil {
			return nil, err
		}
		if resp.IsError() || !out.Status {
			return nil, fmt.Errorf("%w: %s", ErrVerifyFailed, providerMessage(resp, out.Message))
		}
		return &out.Data, nil
	})
	if err != nil {
		if errors.Is(err, ErrVerifyFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrVerifyFailed, err)
	}
	return result.(*VerifyResponse), nil
}

func providerMessage(resp *resty.Response, message string) string {
	if message != "" {
		return message
	}
	return resp.Status()
}
