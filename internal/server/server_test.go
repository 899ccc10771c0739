package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfiguresTimeouts(t *testing.T) {
	s := New(":0", http.NewServeMux())

	assert.Equal(t, 10*time.Second, s.httpServer.ReadHeaderTimeout)
	assert.Equal(t, 120*time.Second, s.httpServer.IdleTimeout)
	// Streaming endpoints keep the response open indefinitely.
	assert.Zero(t, s.httpServer.WriteTimeout)
}
