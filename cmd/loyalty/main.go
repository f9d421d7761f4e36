package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/cleanup"
	"github.com/stampworks/loyalty/internal/clock"
	"github.com/stampworks/loyalty/internal/config"
	"github.com/stampworks/loyalty/internal/customer"
	"github.com/stampworks/loyalty/internal/eligibility"
	"github.com/stampworks/loyalty/internal/merchant"
	"github.com/stampworks/loyalty/internal/migration"
	"github.com/stampworks/loyalty/internal/observability"
	"github.com/stampworks/loyalty/internal/program"
	"github.com/stampworks/loyalty/internal/reward"
	"github.com/stampworks/loyalty/internal/tier"
	"github.com/stampworks/loyalty/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		eligibility.Module,
		merchant.Module,
		tier.Module,
		customer.Module,
		reward.Module,
		program.Module,
		cleanup.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
