package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// GatewayDialer talks to the session gateway sidecar over HTTP. The
// gateway holds the protocol sessions; this client only brokers calls.
type GatewayDialer struct {
	BaseURL string
	Timeout time.Duration
	client  *fasthttp.Client
}

func NewGatewayDialer(baseURL string, timeout time.Duration) *GatewayDialer {
	return &GatewayDialer{
		BaseURL: baseURL,
		Timeout: timeout,
		client:  &fasthttp.Client{},
	}
}

// gatewayError is the error envelope every gateway endpoint may return.
type gatewayError struct {
	Error       string `json:"error"`
	Code        int    `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

func (d *GatewayDialer) Dial(ctx context.Context, creds Credentials) (Conn, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := d.post(ctx, "/sessions", creds, &out); err != nil {
		return nil, err
	}
	return &gatewayConn{dialer: d, sessionID: out.SessionID, alive: true}, nil
}

func (d *GatewayDialer) post(ctx context.Context, path string, body, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(d.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.SetBody(payload)
	}

	timeout := d.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	if err := d.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}

	if resp.StatusCode() >= 400 {
		var ge gatewayError
		if err := json.Unmarshal(resp.Body(), &ge); err == nil {
			switch ge.Error {
			case "rate_limited":
				return &RateLimitedError{Wait: time.Duration(ge.WaitSeconds) * time.Second}
			case "protocol":
				return &ProtocolError{Code: ge.Code, Message: ge.Message}
			}
			if ge.Message != "" {
				return fmt.Errorf("gateway %s: %s", path, ge.Message)
			}
		}
		return fmt.Errorf("gateway %s: status %d", path, resp.StatusCode())
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("gateway %s: decode response: %w", path, err)
		}
	}
	return nil
}

type gatewayConn struct {
	dialer    *GatewayDialer
	sessionID string
	alive     bool
}

func (c *gatewayConn) path(suffix string) string {
	return "/sessions/" + c.sessionID + suffix
}

func (c *gatewayConn) Connected() bool {
	return c.alive
}

func (c *gatewayConn) Resolve(ctx context.Context, identifier string) (*Identity, error) {
	var id Identity
	err := c.dialer.post(ctx, c.path("/resolve"), map[string]string{"identifier": identifier}, &id)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (c *gatewayConn) Send(ctx context.Context, recipient, text string) error {
	return c.dialer.post(ctx, c.path("/send"), map[string]string{
		"recipient": recipient,
		"text":      text,
	}, nil)
}

func (c *gatewayConn) LastMessage(ctx context.Context, recipient string) (*Message, error) {
	var out struct {
		Message *Message `json:"message"`
	}
	err := c.dialer.post(ctx, c.path("/messages/last"), map[string]string{"recipient": recipient}, &out)
	if err != nil {
		return nil, err
	}
	return out.Message, nil
}

func (c *gatewayConn) Perform(ctx context.Context, action string) (string, error) {
	var out struct {
		Detail string `json:"detail"`
	}
	err := c.dialer.post(ctx, c.path("/actions"), map[string]string{"action": action}, &out)
	if err != nil {
		return "", err
	}
	return out.Detail, nil
}

func (c *gatewayConn) Close() error {
	err := c.dialer.post(context.Background(), c.path("/close"), nil, nil)
	c.alive = false
	return err
}
