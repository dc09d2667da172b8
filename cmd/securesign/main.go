package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/securesign/securesign/internal/config"
	"github.com/securesign/securesign/internal/logger"
	"github.com/securesign/securesign/internal/migration"
	"github.com/securesign/securesign/internal/server"
	"github.com/securesign/securesign/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
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
