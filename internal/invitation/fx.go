package invitation

import (
	"github.com/securesign/securesign/internal/invitation/repository"
	"github.com/securesign/securesign/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
