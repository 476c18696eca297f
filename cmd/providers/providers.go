package providers

import (
	"context"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the global logger.
var Log *zap.Logger

// Providers holds constructors for shared components.
var Providers = []interface{}{
	// github.go
	NewAuthConfig,
	NewFlow,
	// metrics.go
	NewMetrics,
	// providers.go
	NewContext,
	// relay.go
	NewRelay,
}

// NewApp builds the fx application of a long-running command.
func NewApp(cmd *cobra.Command, opts ...fx.Option) *fx.App {
	baseOpts := []fx.Option{
		fx.Provide(Providers...),
		fx.Provide(NewMeter),
		fx.Supply(cmd),
		fx.Supply(Log),
		fx.WithLogger(newFxLogger),
	}
	baseOpts = append(baseOpts, opts...)
	return fx.New(baseOpts...)
}

// NewCmd returns a cobra RunE running invoke once.
// The app is never started, so invoke must not rely on lifecycle hooks.
func NewCmd(invoke interface{}) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			fx.Provide(Providers...),
			fx.Supply(cmd),
			fx.Supply(args),
			fx.Supply(Log),
			fx.WithLogger(newFxLogger),
			fx.Invoke(invoke),
		)
		return app.Err()
	}
}

func newFxLogger(log *zap.Logger) fxevent.Logger {
	l := &fxevent.ZapLogger{Logger: log.Named("fx")}
	l.UseLogLevel(zapcore.DebugLevel)
	return l
}

// NewMeter returns the meter of the running command.
func NewMeter(cmd *cobra.Command, m *Metrics) metric.Meter {
	return m.Provider.Meter("octolog/" + cmd.Name())
}

func NewContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
	return ctx
}
