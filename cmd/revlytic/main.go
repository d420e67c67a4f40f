package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/revlytic/revlytic/internal/clock"
	"github.com/revlytic/revlytic/internal/config"
	"github.com/revlytic/revlytic/internal/migration"
	"github.com/revlytic/revlytic/internal/observability"
	"github.com/revlytic/revlytic/internal/server"
	"github.com/revlytic/revlytic/pkg/db"
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
		server.Module,
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
