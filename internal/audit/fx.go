package audit

import (
	"github.com/securesign/securesign/internal/audit/repository"
	"github.com/securesign/securesign/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
