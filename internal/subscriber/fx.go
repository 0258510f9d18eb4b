package subscriber

import (
	"github.com/wecloud/backoffice/internal/subscriber/repository"
	"github.com/wecloud/backoffice/internal/subscriber/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscriber.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
