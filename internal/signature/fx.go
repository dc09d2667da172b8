package signature

import (
	"github.com/securesign/securesign/internal/signature/repository"
	"github.com/securesign/securesign/internal/signature/service"
	"go.uber.org/fx"
)

var Module = fx.Module("signature.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
