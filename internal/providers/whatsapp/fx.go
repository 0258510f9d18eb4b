package whatsapp

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/wecloud/backoffice/internal/config"
	notificationdomain "github.com/wecloud/backoffice/internal/notification/domain"
)

var Module = fx.Module("providers.whatsapp",
	fx.Provide(
		NewFromConfig,
		NewGateway,
	),
)

// NewGateway adapts the provider to the dispatcher's outbound contract.
func NewGateway(p Provider) notificationdomain.Gateway {
	return gatewayAdapter{p: p}
}

type gatewayAdapter struct {
	p Provider
}

func (g gatewayAdapter) SendText(ctx context.Context, phone, message string) error {
	if err := g.p.EnsureReady(ctx); err != nil {
		return err
	}
	return g.p.SendText(ctx, phone, message)
}

func (g gatewayAdapter) SendFile(ctx context.Context, phone, caption, filename, mimetype string, data []byte) error {
	if err := g.p.EnsureReady(ctx); err != nil {
		return err
	}
	return g.p.SendFile(ctx, phone, caption, FilePayload{
		Filename: filename,
		Mimetype: mimetype,
		Data:     data,
	})
}

// NewFromConfig builds the gateway client, or a no-op when no base URL is
// configured so the dispatcher keeps working in environments without WAHA.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Gateway.BaseURL == "" {
		log.Warn("no messaging gateway configured, outbound messages will be dropped")
		return &NoOpProvider{}
	}
	return NewClient(cfg.Gateway, log)
}
