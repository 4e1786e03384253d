package controllers_fx

import (
	"go.uber.org/fx"

	"wayfarer/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewChatController),
	fx.Provide(controllers.NewSessionController),
	fx.Provide(controllers.NewHealthController),
	fx.Provide(controllers.NewRouter))
