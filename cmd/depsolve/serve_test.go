package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServers_StopsMetricsWhenMCPReturns(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	done := make(chan error, 1)
	go func() {
		done <- runServers(context.Background(), "127.0.0.1:0", metrics, func(context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServers did not return after the MCP server stopped")
	}
}

func TestRunServers_PropagatesMCPError(t *testing.T) {
	boom := errors.New("transport closed")
	err := runServers(context.Background(), "", nil, func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}
