package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/petclinic-e2e/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestServerServeHTTP(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "owner details")
	})

	s, err := server.NewServer("127.0.0.1:0", handler, &logger)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	s.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/owners/1", nil))
	require.Equal(t, "owner details", recorder.Body.String())
}

func TestServerShutdown(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	s, err := server.NewServer("127.0.0.1:0", http.NotFoundHandler(), &logger)
	require.NoError(t, err)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.Serve()
	}()

	// Give Serve a moment to start listening.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
