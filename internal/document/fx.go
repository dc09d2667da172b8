package document

import (
	"github.com/securesign/securesign/internal/document/repository"
	"github.com/securesign/securesign/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
