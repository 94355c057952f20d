package logging

import (
	"context"
	"os"

	"vending_client/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module registers the log file and decorates the root logger. The decorator
// sits outside fx.Module so every other module sees the teed logger.
func Module() fx.Option {
	return fx.Options(
		fx.Module(
			"logging",
			fx.Provide(func(cfg config.Config) (*os.File, error) {
				return OpenLogFile(cfg.LogFile)
			}),
			fx.Invoke(func(lc fx.Lifecycle, file *os.File) {
				if file == nil {
					return
				}
				lc.Append(fx.Hook{
					OnStop: func(_ context.Context) error {
						return file.Close()
					},
				})
			}),
		),
		fx.Decorate(func(base *zap.Logger, cfg config.Config, file *os.File) *zap.Logger {
			return AttachFileLogger(base, file, cfg.Debug)
		}),
	)
}
