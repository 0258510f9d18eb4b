package invoice

import (
	"github.com/wecloud/backoffice/internal/invoice/livefeed"
	"github.com/wecloud/backoffice/internal/invoice/repository"
	"github.com/wecloud/backoffice/internal/invoice/sequence"
	"github.com/wecloud/backoffice/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(sequence.NewAllocator),
	fx.Provide(livefeed.NewHub),
	fx.Provide(service.New),
)
