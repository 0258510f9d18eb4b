package providers

import (
	"github.com/wecloud/backoffice/internal/providers/pdf"
	"github.com/wecloud/backoffice/internal/providers/whatsapp"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
	whatsapp.Module,
)
