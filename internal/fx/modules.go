package fx

import (
	"go.uber.org/fx"

	"github.com/sparshsam/wager-ai-assistant/internal/api"
	"github.com/sparshsam/wager-ai-assistant/internal/config"
	"github.com/sparshsam/wager-ai-assistant/internal/database"
	"github.com/sparshsam/wager-ai-assistant/internal/logger"
	"github.com/sparshsam/wager-ai-assistant/internal/repository"
	"github.com/sparshsam/wager-ai-assistant/internal/server"
	"github.com/sparshsam/wager-ai-assistant/internal/service"
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewUserRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewScheduleRepository),
	fx.Provide(repository.NewScriptRepository),
	fx.Provide(repository.NewPickRepository),
	fx.Provide(repository.NewBankrollRepository),
	fx.Provide(repository.NewUploadRepository),
	// api client
	fx.Provide(api.NewAbacusClient),
	// svc
	fx.Provide(service.NewAuthService),
	fx.Provide(service.NewScheduleService),
	fx.Provide(service.NewScriptService),
	fx.Provide(service.NewAnalysisService),
	fx.Provide(service.NewExecutionService),
	fx.Provide(service.NewPickService),
	fx.Provide(service.NewUploadService),
	// server
	fx.Provide(server.New),
)
