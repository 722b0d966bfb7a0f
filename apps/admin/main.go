package main

import (
	"context"
	"log"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/trezcool/mahudhurio/core"
	logsvc "github.com/trezcool/mahudhurio/services/logger"
	rediscache "github.com/trezcool/mahudhurio/storage/cache/redis"
	"github.com/trezcool/mahudhurio/storage/database"
	gormrepos "github.com/trezcool/mahudhurio/storage/database/gorm"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	gdb, err := gormrepos.Open(db, logger)
	errAndDie(err)

	var rdb *redis.Client
	if conf.Redis.Enabled {
		if rdb, err = rediscache.NewClient(context.Background(), conf); err != nil {
			logger.Warn("redis unavailable, roster cache will not be invalidated", err)
		} else {
			defer rdb.Close()
		}
	}

	// start CLI
	cli := newCommandLine(db, gormrepos.NewRoster(gdb), rdb, conf.Redis.RosterTTL, logger)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
