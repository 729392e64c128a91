package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/propline/propline/internal/clock"
	"github.com/propline/propline/internal/migration"
	"github.com/propline/propline/internal/observability"
	"github.com/propline/propline/internal/server"
	"github.com/propline/propline/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
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
