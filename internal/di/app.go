// Package di assembles the service graphs with google/wire.
package di

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"devlink/internal/chat/handler"
	"devlink/internal/chat/realtime"
	"devlink/internal/chat/store"
	"devlink/internal/config"
	"devlink/internal/dbmongo"
	"devlink/internal/dbmysql"
	"devlink/internal/media"
	"devlink/internal/user"
)

// presenceStateKey is the Redis hash holding the current presence members.
const presenceStateKey = "devlink:presence"

// Application carries every service the chat binary serves.
type Application struct {
	Config      *config.Config
	DB          *gorm.DB
	Mongo       *dbmongo.MongoClient
	Redis       *redis.Client
	Store       store.Store
	UserService user.UserService
	ChatHandler *handler.ChatHandler
	UserHandler *user.Handler
}

// MediaApplication carries the attachment streaming server.
type MediaApplication struct {
	Config *config.Config
	Mongo  *dbmongo.MongoClient
	Server *media.HTTPServer
}

func ProvideConfig() *config.Config {
	return config.LoadConfig()
}

func ProvideMySQL(cfg *config.Config) (*gorm.DB, func(), error) {
	db, err := dbmysql.NewMySQL(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideMongo(cfg *config.Config) (*dbmongo.MongoClient, func(), error) {
	client, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := client.Close(context.Background()); err != nil {
			log.Printf("di: mongo close: %v", err)
		}
	}
	return client, cleanup, nil
}

func ProvideRedisClient(cfg *config.Config) (*redis.Client, func()) {
	client := realtime.NewRedisClient(cfg)
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Printf("di: redis close: %v", err)
		}
	}
	return client, cleanup
}

func ProvideBus(client *redis.Client) realtime.Bus {
	return realtime.NewRedisBus(client)
}

func ProvideStateStore(client *redis.Client) realtime.StateStore {
	return realtime.NewRedisStateStore(client, presenceStateKey)
}

func ProvideAttachmentStorage(mongo *dbmongo.MongoClient) *dbmongo.AttachmentStorage {
	return dbmongo.NewAttachmentStorage(mongo)
}

func ProvideObjectStorage(storage *dbmongo.AttachmentStorage) store.ObjectStorage {
	return storage
}

func ProvideChannelManager(bus realtime.Bus) *realtime.Manager {
	return realtime.NewManager(bus)
}

func ProvideStore(db *gorm.DB, objects store.ObjectStorage, channels *realtime.Manager, cfg *config.Config) store.Store {
	return store.NewStore(db, objects, channels, cfg.Server.MediaBaseURL)
}

func ProvideConnectionAccess(svc user.UserService) handler.ConnectionAccess {
	return svc
}

func ProvideMediaServer(mongo *dbmongo.MongoClient) *media.HTTPServer {
	return media.NewHTTPServer(mongo)
}
