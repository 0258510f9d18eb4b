package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wecloud/backoffice/internal/config"
	subscriberdomain "github.com/wecloud/backoffice/internal/subscriber/domain"
	"github.com/wecloud/backoffice/pkg/retry"
)

const restartSettle = 2 * time.Second

// Client talks to a WAHA-compatible gateway over its HTTP API.
type Client struct {
	cfg    config.GatewayConfig
	http   *http.Client
	log    *zap.Logger
	policy retry.Policy
	settle time.Duration
}

func NewClient(cfg config.GatewayConfig, log *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		log:    log.Named("providers.whatsapp"),
		policy: retry.DefaultPolicy(),
		settle: restartSettle,
	}
}

type sessionResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Status fetches the session state. A session the gateway has never seen is
// created and started, reporting STARTING.
func (c *Client) Status(ctx context.Context) (SessionState, error) {
	var session sessionResponse
	status, err := c.doJSON(ctx, http.MethodGet, c.sessionURL(""), nil, &session)
	if err != nil {
		return StateUnknown, err
	}

	switch {
	case status == http.StatusOK:
		if session.Status == "" {
			return StateUnknown, nil
		}
		return SessionState(session.Status), nil
	case status == http.StatusNotFound:
		if err := c.createSession(ctx); err != nil {
			return StateUnknown, err
		}
		if err := c.startSession(ctx); err != nil {
			return StateUnknown, err
		}
		return StateStarting, nil
	case status == http.StatusUnauthorized || status == http.StatusUnprocessableEntity:
		// The engine is up but refuses session introspection. Treat the
		// session as live rather than failing every caller.
		c.log.Warn("session introspection refused", zap.Int("status", status))
		return StateUnknown, nil
	default:
		return StateUnknown, &GatewayError{StatusCode: status, Message: "session check failed"}
	}
}

// EnsureReady drives the session to a deliverable state. Sessions stuck
// waiting on a QR scan or in FAILED get a full restart so a fresh pairing
// code can be issued.
func (c *Client) EnsureReady(ctx context.Context) error {
	state, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if state.Ready() || state == StateUnknown {
		return nil
	}

	switch state {
	case StateScanQR, StateFailed, StateStopped:
		c.log.Info("restarting stuck session", zap.String("state", string(state)))
		return c.Restart(ctx)
	default:
		// STARTING resolves on its own; just make sure a start was issued.
		return c.startSession(ctx)
	}
}

// Restart stops, deletes, recreates and starts the session. Stop and delete
// failures are tolerated: a half-dead session often rejects both yet still
// accepts a fresh create.
func (c *Client) Restart(ctx context.Context) error {
	if _, err := c.doJSON(ctx, http.MethodPost, c.sessionURL("/stop"), nil, nil); err != nil {
		c.log.Debug("session stop failed, continuing", zap.Error(err))
	}
	if err := sleepCtx(ctx, c.settle); err != nil {
		return err
	}
	if _, err := c.doJSON(ctx, http.MethodDelete, c.sessionURL(""), nil, nil); err != nil {
		c.log.Debug("session delete failed, continuing", zap.Error(err))
	}
	if err := sleepCtx(ctx, c.settle); err != nil {
		return err
	}
	if err := c.createSession(ctx); err != nil {
		return err
	}
	return c.startSession(ctx)
}

// QR asks the gateway for the pairing code. WAHA builds expose it under
// different paths and field names, so each candidate is tried in order and
// the first hit wins.
func (c *Client) QR(ctx context.Context) (string, error) {
	endpoints := []string{
		fmt.Sprintf("%s/%s/auth/qr", c.cfg.BaseURL, c.cfg.Session),
		fmt.Sprintf("%s/auth/%s/qr", c.cfg.BaseURL, c.cfg.Session),
		fmt.Sprintf("%s/sessions/%s/qr", c.cfg.BaseURL, c.cfg.Session),
	}

	var lastErr error
	for _, endpoint := range endpoints {
		var body map[string]any
		status, err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &body)
		if err != nil {
			lastErr = err
			continue
		}
		if status != http.StatusOK {
			lastErr = &GatewayError{StatusCode: status, Message: "qr endpoint unavailable"}
			continue
		}
		for _, field := range []string{"qr", "data", "qrcode"} {
			if code, ok := body[field].(string); ok && code != "" {
				return code, nil
			}
		}
		lastErr = &GatewayError{StatusCode: status, Message: "qr response had no recognizable code field"}
	}
	if lastErr == nil {
		lastErr = &GatewayError{StatusCode: http.StatusNotFound, Message: "no qr endpoint responded"}
	}
	return "", lastErr
}

func (c *Client) SendText(ctx context.Context, phone, message string) error {
	chatID, err := c.chatID(phone)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"chatId":  chatID,
		"session": c.cfg.Session,
		"text":    message,
	}
	return c.send(ctx, "sendText", payload)
}

func (c *Client) SendFile(ctx context.Context, phone, caption string, file FilePayload) error {
	chatID, err := c.chatID(phone)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"chatId":  chatID,
		"session": c.cfg.Session,
		"caption": caption,
		"file": map[string]any{
			"mimetype": file.Mimetype,
			"filename": file.Filename,
			"data":     base64.StdEncoding.EncodeToString(file.Data),
		},
	}
	return c.send(ctx, endpointForMimetype(file.Mimetype), payload)
}

// endpointForMimetype picks the media endpoint; documents go over sendFile.
func endpointForMimetype(mimetype string) string {
	switch {
	case strings.HasPrefix(mimetype, "image"):
		return "sendImage"
	case strings.HasPrefix(mimetype, "video"):
		return "sendVideo"
	case strings.HasPrefix(mimetype, "audio"):
		return "sendVoice"
	default:
		return "sendFile"
	}
}

func (c *Client) chatID(phone string) (string, error) {
	normalized, err := subscriberdomain.NormalizePhone(phone, c.cfg.DefaultCountry)
	if err != nil {
		return "", fmt.Errorf("invalid recipient phone: %w", err)
	}
	return normalized + "@c.us", nil
}

// send posts the payload, retrying transient failures. 4xx responses are
// permanent; a 422 naming the Plus tier is surfaced with the flag set so
// callers can distinguish a licensing refusal from a delivery failure.
func (c *Client) send(ctx context.Context, endpoint string, payload map[string]any) error {
	url := fmt.Sprintf("%s/%s", c.cfg.BaseURL, endpoint)
	return retry.Do(ctx, c.policy, func() error {
		status, body, err := c.doRaw(ctx, http.MethodPost, url, payload)
		if err != nil {
			return err
		}
		if status >= 200 && status < 300 {
			return nil
		}

		gwErr := &GatewayError{StatusCode: status, Message: errorMessage(body)}
		if status == http.StatusUnprocessableEntity && strings.Contains(gwErr.Message, "Plus version") {
			gwErr.PlusFeature = true
		}
		if status >= 500 {
			return gwErr
		}
		return retry.Permanent(gwErr)
	})
}

func (c *Client) createSession(ctx context.Context) error {
	payload := map[string]any{"name": c.cfg.Session}
	status, body, err := c.doRaw(ctx, http.MethodPost, c.cfg.BaseURL+"/sessions", payload)
	if err != nil {
		return err
	}
	// 422 usually means the session already exists; the follow-up start
	// settles it either way.
	if status >= 300 && status != http.StatusUnprocessableEntity {
		return &GatewayError{StatusCode: status, Message: errorMessage(body)}
	}
	return nil
}

func (c *Client) startSession(ctx context.Context) error {
	status, body, err := c.doRaw(ctx, http.MethodPost, c.sessionURL("/start"), nil)
	if err != nil {
		return err
	}
	if status >= 300 && status != http.StatusUnprocessableEntity {
		return &GatewayError{StatusCode: status, Message: errorMessage(body)}
	}
	return nil
}

func (c *Client) sessionURL(suffix string) string {
	return fmt.Sprintf("%s/sessions/%s%s", c.cfg.BaseURL, c.cfg.Session, suffix)
}

// doJSON issues the request and decodes a JSON body into out when one is
// wanted. The HTTP status is returned for the caller to interpret.
func (c *Client) doJSON(ctx context.Context, method, url string, payload, out any) (int, error) {
	status, body, err := c.doRaw(ctx, method, url, payload)
	if err != nil {
		return 0, err
	}
	if out != nil && status == http.StatusOK && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return status, fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return status, nil
}

func (c *Client) doRaw(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

// errorMessage extracts the gateway's message field when the error body is
// JSON, falling back to the raw text.
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return parsed.Message
	}
	return strings.TrimSpace(string(body))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
