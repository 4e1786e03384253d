package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"wayfarer/internal/config"
	"wayfarer/internal/services"
)

var Module = fx.Provide(provideExportService)

func provideExportService(cfg *config.Config, log *zap.Logger) services.ExportServiceInterface {
	if cfg.ExportWebhookURL == "" {
		log.Info("EXPORT_WEBHOOK_URL not set, exports will report the workflow as unavailable")
	}
	return services.NewExportService(cfg.ExportWebhookURL, cfg.ExportTimeout, log.Named("export"))
}
