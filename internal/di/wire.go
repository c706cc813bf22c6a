//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"devlink/internal/chat/handler"
	"devlink/internal/user"
)

// InitializeChatService assembles the chat service graph. Wire generates the
// real body; this declaration only records the provider set.
func InitializeChatService() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideMySQL,
		ProvideMongo,
		ProvideRedisClient,
		ProvideBus,
		ProvideStateStore,
		ProvideAttachmentStorage,
		ProvideObjectStorage,
		ProvideChannelManager,
		ProvideStore,
		user.NewUserRepository,
		user.NewConnectionRepository,
		user.NewUserService,
		ProvideConnectionAccess,
		handler.NewChatHandler,
		user.NewHandler,
		wire.Struct(new(Application), "*"),
	)
	return &Application{}, nil, nil
}

// InitializeMediaServer assembles the attachment streaming server.
func InitializeMediaServer() (*MediaApplication, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideMongo,
		ProvideMediaServer,
		wire.Struct(new(MediaApplication), "*"),
	)
	return &MediaApplication{}, nil, nil
}
