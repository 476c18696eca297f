package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Server config keys.
const (
	ConfServerPort    = "server.port"
	ConfServerBaseURL = "server.base_url"
	// ConfServerSocket replaces the TCP port with a unix socket when set.
	ConfServerSocket = "server.socket"
)

func init() {
	viper.SetDefault(ConfServerPort, 8080)
	viper.SetDefault(ConfServerBaseURL, "")
	viper.SetDefault(ConfServerSocket, "")
}

// BaseURL returns the externally visible URL of the server without a trailing slash.
func BaseURL() string {
	if base := viper.GetString(ConfServerBaseURL); base != "" {
		return strings.TrimSuffix(base, "/")
	}
	return "http://localhost:" + strconv.Itoa(viper.GetInt(ConfServerPort))
}

// ListenAddr returns the network and address the server binds to.
func ListenAddr() (network, address string) {
	if socket := viper.GetString(ConfServerSocket); socket != "" {
		return "unix", socket
	}
	return "tcp", ":" + strconv.Itoa(viper.GetInt(ConfServerPort))
}

// ListenUnix is a wrapper over unix socket listeners with proper cleanup.
func ListenUnix(path string) (net.Listener, error) {
	stat, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		return net.Listen("unix", path)
	} else if statErr != nil {
		return nil, statErr
	}
	// Socket still exists, clean up.
	if stat.Mode()&os.ModeSocket == 0 {
		return nil, fmt.Errorf("existing file is not a socket: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to remove socket: %w", err)
	}
	return net.Listen("unix", path)
}

// Listen is a wrapper over net.Listen with better unix socket support.
func Listen(network, address string) (net.Listener, error) {
	switch network {
	case "unix":
		return ListenUnix(address)
	default:
		return net.Listen(network, address)
	}
}

// LifecycleServe binds the server on start and shuts it down gracefully on stop.
func LifecycleServe(log *zap.Logger, lc fx.Lifecycle, network, address string, server *http.Server) {
	opts := []zap.Field{
		zap.String("listen.net", network),
		zap.String("listen.addr", address),
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sock, err := Listen(network, address)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			log.Info("Starting server", opts...)
			go func() {
				if err := server.Serve(sock); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("Server failed", append(opts, zap.Error(err))...)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping server", opts...)
			return server.Shutdown(ctx)
		},
	})
}
