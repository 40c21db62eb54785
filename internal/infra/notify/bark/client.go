// Package bark delivers push notifications through a Bark server
// (https://github.com/Finb/Bark), the provider used for operator alerts.
package bark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/gabapcia/poolwatch/internal/alerting"
	transporthttp "github.com/gabapcia/poolwatch/internal/pkg/transport/http"
)

const (
	defaultServer = "https://api.day.app"

	levelActive   = "active"
	levelCritical = "critical"
)

// Client is a Bark push notifier.
type Client struct {
	httpClient *retryablehttp.Client
	server     string
	deviceKey  string
}

var _ alerting.Notifier = (*Client)(nil)

type config struct {
	server     string
	httpClient *retryablehttp.Client
}

// Option customizes the Bark client.
type Option func(*config)

// WithServer points the client at a self-hosted Bark server instead of the
// public one.
func WithServer(server string) Option {
	return func(c *config) {
		c.server = server
	}
}

// WithHTTPClient overrides the underlying HTTP client; used by tests.
func WithHTTPClient(httpClient *retryablehttp.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// New builds a Bark client for the given device key.
func New(deviceKey string, opts ...Option) (*Client, error) {
	if deviceKey == "" {
		return nil, fmt.Errorf("bark device key is required")
	}

	cfg := config{server: defaultServer}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = transporthttp.NewClient()
	}

	return &Client{
		httpClient: cfg.httpClient,
		server:     strings.TrimRight(cfg.server, "/"),
		deviceKey:  deviceKey,
	}, nil
}

// pushRequest is the Bark /push payload.
type pushRequest struct {
	DeviceKey string `json:"device_key"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Group     string `json:"group,omitempty"`
	Level     string `json:"level"`
}

// Push sends one notification. Failures are classified: network errors,
// 5xx and 429 are transient, other 4xx are permanent.
func (c *Client) Push(ctx context.Context, notification alerting.Notification) error {
	level := levelActive
	if notification.HighPriority {
		level = levelCritical
	}

	payload, err := json.Marshal(pushRequest{
		DeviceKey: c.deviceKey,
		Title:     notification.Title,
		Body:      notification.Body,
		Group:     notification.Group,
		Level:     level,
	})
	if err != nil {
		return &alerting.DeliveryError{Err: fmt.Errorf("encoding push payload: %w", err)}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.server+"/push", bytes.NewReader(payload))
	if err != nil {
		return &alerting.DeliveryError{Err: fmt.Errorf("building push request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &alerting.DeliveryError{Transient: true, Err: fmt.Errorf("sending push request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	deliveryErr := fmt.Errorf("bark server rejected push: %s", strings.TrimSpace(string(body)))

	transient := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return &alerting.DeliveryError{
		Transient:  transient,
		StatusCode: resp.StatusCode,
		Err:        deliveryErr,
	}
}

// Verify performs a connectivity and credential probe by pushing a low
// priority test notification.
func (c *Client) Verify(ctx context.Context) error {
	return c.Push(ctx, alerting.Notification{
		Title: "Monitor verification",
		Body:  "Notification channel is reachable",
		Group: "poolwatch-verify",
	})
}
