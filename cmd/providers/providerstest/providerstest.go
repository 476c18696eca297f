// Package providerstest validates command dependency graphs.
package providerstest

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"go.od2.network/octolog/cmd/providers"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// Validate checks that opts together with the shared providers form a complete graph.
// Constructors are not called.
func Validate(t *testing.T, opts ...fx.Option) {
	log := zaptest.NewLogger(t)
	opts = append(opts,
		fx.Supply(
			log,
			new(cobra.Command),
		),
		fx.Provide(func() metric.Meter {
			return noop.NewMeterProvider().Meter("test")
		}),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(providers.Providers...))
	assert.NoError(t, fx.ValidateApp(opts...))
}
