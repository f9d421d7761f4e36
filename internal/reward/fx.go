package reward

import (
	"github.com/stampworks/loyalty/internal/reward/repository"
	"github.com/stampworks/loyalty/internal/reward/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reward.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
