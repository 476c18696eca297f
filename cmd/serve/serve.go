package serve

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.od2.network/octolog/cmd/providers"
	"go.od2.network/octolog/pkg/auth"
	"go.od2.network/octolog/pkg/relay"
	"go.od2.network/octolog/pkg/webhook"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Cmd = cobra.Command{
	Use:   "serve",
	Short: "Run the OAuth and webhook server",
	Long: "Serves the GitHub OAuth web flow on /login and /callback " +
		"and logs webhook deliveries posted to /webhook",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		app := providers.NewApp(cmd, Options)
		app.Run()
	},
}

func init() {
	flags := Cmd.Flags()
	flags.Int("port", 8080, "HTTP port")
	flags.String("base-url", "", "Externally visible URL (default http://localhost:<port>)")
	flags.String("socket", "", "Serve on a unix socket instead of the HTTP port")
	_ = viper.BindPFlag(providers.ConfServerPort, flags.Lookup("port"))
	_ = viper.BindPFlag(providers.ConfServerBaseURL, flags.Lookup("base-url"))
	_ = viper.BindPFlag(providers.ConfServerSocket, flags.Lookup("socket"))
}

// Options wires the server.
var Options = fx.Options(
	fx.Provide(
		newReceiver,
		newMux,
	),
	fx.Invoke(Run),
)

func newReceiver(log *zap.Logger, r relay.Relay, meter metric.Meter) (*webhook.Receiver, error) {
	return webhook.NewReceiver(log.Named("webhook"), r, meter)
}

func newMux(flow *auth.Flow, receiver *webhook.Receiver, metrics *providers.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", flow.ServeLogin)
	mux.HandleFunc("GET /callback", flow.ServeCallback)
	mux.Handle("/webhook", receiver)
	mux.HandleFunc("GET /healthz", func(wr http.ResponseWriter, _ *http.Request) {
		_, _ = wr.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", metrics.Handler)
	return mux
}

func Run(lc fx.Lifecycle, log *zap.Logger, handler http.Handler) {
	network, address := providers.ListenAddr()
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info("Serving GitHub OAuth flow",
		zap.String("login", providers.BaseURL()+"/login"),
		zap.String("webhook", providers.BaseURL()+"/webhook"))
	providers.LifecycleServe(log, lc, network, address, server)
}
