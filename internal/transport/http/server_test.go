package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewServerAppliesConfig(t *testing.T) {
	handler := http.NewServeMux()
	server := NewServer(Config{
		Address:      ":8080",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  time.Minute,
	}, handler)

	require.Equal(t, ":8080", server.Addr)
	require.Equal(t, 3*time.Second, server.ReadTimeout)
	require.Equal(t, 3*time.Second, server.ReadHeaderTimeout)
	require.Equal(t, 10*time.Second, server.WriteTimeout)
	require.Equal(t, time.Minute, server.IdleTimeout)
	require.Equal(t, maxHeaderBytes, server.MaxHeaderBytes)
}

func TestNewServerCapsHeaderTimeout(t *testing.T) {
	server := NewServer(Config{ReadTimeout: time.Minute}, http.NewServeMux())
	require.Equal(t, 5*time.Second, server.ReadHeaderTimeout)

	server = NewServer(Config{}, http.NewServeMux())
	require.Equal(t, 5*time.Second, server.ReadHeaderTimeout)
}
