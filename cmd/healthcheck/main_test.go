package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/readyz", resolveURL("", ""))
	assert.Equal(t, "http://fleet:9000/readyz", resolveURL("", "http://fleet:9000/"))
	assert.Equal(t, "http://x/healthz", resolveURL("http://x/healthz", "http://fleet:9000"))
}

func TestProbe(t *testing.T) {
	ready := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	require.NoError(t, probe(context.Background(), srv.Client(), srv.URL+"/readyz"))

	ready = false
	err := probe(context.Background(), srv.Client(), srv.URL+"/readyz")
	assert.ErrorContains(t, err, "returned status 503")
}
