package whatsapp

import (
	"context"
	"fmt"
)

// SessionState mirrors the states the WAHA engine reports for a session.
type SessionState string

const (
	StateStarting  SessionState = "STARTING"
	StateScanQR    SessionState = "SCAN_QR_CODE"
	StateConnected SessionState = "CONNECTED"
	StateWorking   SessionState = "WORKING"
	StateFailed    SessionState = "FAILED"
	StateStopped   SessionState = "STOPPED"
	StateUnknown   SessionState = "UNKNOWN"
)

// Ready reports whether a session in this state can deliver messages.
func (s SessionState) Ready() bool {
	return s == StateWorking || s == StateConnected
}

// Provider is the WAHA gateway surface the rest of the system talks to.
type Provider interface {
	// Status returns the current session state, creating and starting the
	// session when the gateway has never seen it.
	Status(ctx context.Context) (SessionState, error)
	// EnsureReady drives the session to a deliverable state, restarting it
	// when it is stuck waiting for authentication or has failed.
	EnsureReady(ctx context.Context) error
	// QR returns the pairing QR code payload for an unauthenticated session.
	QR(ctx context.Context) (string, error)
	// Restart stops, deletes, recreates and starts the session.
	Restart(ctx context.Context) error

	SendText(ctx context.Context, phone, message string) error
	SendFile(ctx context.Context, phone, caption string, file FilePayload) error
}

// FilePayload is an outbound document attachment.
type FilePayload struct {
	Filename string
	Mimetype string
	Data     []byte
}

// GatewayError carries the gateway's HTTP status alongside its message.
type GatewayError struct {
	StatusCode  int
	Message     string
	PlusFeature bool
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// NoOpProvider drops every message. It backs deployments without a
// configured gateway so the dispatcher stays wired.
type NoOpProvider struct{}

func (p *NoOpProvider) Status(ctx context.Context) (SessionState, error) { return StateUnknown, nil }
func (p *NoOpProvider) EnsureReady(ctx context.Context) error            { return nil }
func (p *NoOpProvider) QR(ctx context.Context) (string, error)           { return "", nil }
func (p *NoOpProvider) Restart(ctx context.Context) error                { return nil }

func (p *NoOpProvider) SendText(ctx context.Context, phone, message string) error { return nil }

func (p *NoOpProvider) SendFile(ctx context.Context, phone, caption string, file FilePayload) error {
	return nil
}
