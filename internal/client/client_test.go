package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"distributed-kvstore/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDecodesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kvs/keys/alpha", r.URL.Path)
		value := "v1"
		exists := true
		json.NewEncoder(w).Encode(wire.GetResponse{Message: "ok", Value: &value, DoesExist: &exists})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	resp, err := c.Get(context.Background(), "alpha", nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Value)
	assert.Equal(t, "v1", *resp.Value)
}

func TestGetMissingKeyReturnsErrNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(wire.GetResponse{Message: "not found", Error: "key_not_exist"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Get(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnsatisfiedCausalContextReturnsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(wire.GetResponse{Message: "no", Error: "unable_to_satisfy"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Get(context.Background(), "alpha", nil)
	assert.ErrorIs(t, err, ErrUnableToSatisfy)
}

func TestPutSendsValueAndCausalContext(t *testing.T) {
	var gotBody wire.PutRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(wire.PutResponse{Message: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Put(context.Background(), "alpha", "v1", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", gotBody.Value)
}

func TestDoPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.Put(context.Background(), "alpha", "v1", nil)
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestChangeViewEncodesCommaSeparatedView(t *testing.T) {
	var gotBody wire.ViewChangeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(wire.ViewChangeResponse{Message: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, err := c.ChangeView(context.Background(), []string{"a:1", "b:2"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "a:1,b:2", gotBody.View)
}
