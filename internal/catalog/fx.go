package catalog

import (
	"github.com/wecloud/backoffice/internal/catalog/repository"
	"github.com/wecloud/backoffice/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
