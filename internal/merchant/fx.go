package merchant

import (
	"github.com/stampworks/loyalty/internal/merchant/repository"
	"github.com/stampworks/loyalty/internal/merchant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("merchant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
