package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setConf overrides a config key for the duration of the test.
func setConf(t *testing.T, key string, value interface{}) {
	t.Helper()
	viper.Set(key, value)
	t.Cleanup(func() { viper.Set(key, nil) })
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", BaseURL())

	setConf(t, ConfServerPort, 9000)
	assert.Equal(t, "http://localhost:9000", BaseURL())

	setConf(t, ConfServerBaseURL, "https://octolog.example.com")
	assert.Equal(t, "https://octolog.example.com", BaseURL())
}

func TestListenAddr(t *testing.T) {
	setConf(t, ConfServerPort, 9000)
	network, address := ListenAddr()
	assert.Equal(t, "tcp", network)
	assert.Equal(t, ":9000", address)

	setConf(t, ConfServerSocket, "/run/octolog.sock")
	network, address = ListenAddr()
	assert.Equal(t, "unix", network)
	assert.Equal(t, "/run/octolog.sock", address)
}

func TestListenUnix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.sock")

	sock, err := ListenUnix(path)
	require.NoError(t, err)
	// Leave a stale socket file behind.
	sock.(interface{ SetUnlinkOnClose(bool) }).SetUnlinkOnClose(false)
	require.NoError(t, sock.Close())

	sock, err = ListenUnix(path)
	require.NoError(t, err)
	require.NoError(t, sock.Close())
}

func TestListenUnix_NotASocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := ListenUnix(path)
	assert.EqualError(t, err, "existing file is not a socket: "+path)
}
