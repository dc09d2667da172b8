package auth

import (
	"github.com/securesign/securesign/internal/auth/repository"
	"github.com/securesign/securesign/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
