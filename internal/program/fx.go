package program

import (
	"github.com/stampworks/loyalty/internal/program/repository"
	"github.com/stampworks/loyalty/internal/program/service"
	"go.uber.org/fx"
)

var Module = fx.Module("program.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
