package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"distributed-kvstore/internal/cluster"
	"distributed-kvstore/internal/distributor"
	"distributed-kvstore/internal/peer"
	"distributed-kvstore/internal/scheduler"
	"distributed-kvstore/internal/store"
	"distributed-kvstore/internal/wire"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, *distributor.Distributor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := cluster.NewView([]string{"self"}, "self", 1)
	require.NoError(t, err)
	d := distributor.New(v, store.New(), peer.New(), scheduler.New(), zerolog.Nop(), time.Hour)
	t.Cleanup(d.Close)

	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	NewHandler(d, "self").Register(r)
	return r, d
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthReportsAddressAndBucket(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "self", body["address"])
}

func TestPutThenGetKeyRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPut, "/kvs/keys/alpha", wire.PutRequest{Value: "v1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var putResp wire.PutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &putResp))
	require.NotEmpty(t, putResp.CausalContext)

	w = doJSON(t, r, http.MethodGet, "/kvs/keys/alpha", wire.GetRequest{CausalContext: putResp.CausalContext})
	require.Equal(t, http.StatusOK, w.Code)

	var getResp wire.GetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &getResp))
	require.NotNil(t, getResp.Value)
	require.Equal(t, "v1", *getResp.Value)
}

func TestPutMissingValueRejected(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodPut, "/kvs/keys/alpha", wire.PutRequest{Value: ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp wire.PutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "value_missing", resp.Error)
}

func TestGetUnknownKeyIsNotFound(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/kvs/keys/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteKeyRemovesIt(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPut, "/kvs/keys/beta", wire.PutRequest{Value: "v1"})

	w := doJSON(t, r, http.MethodDelete, "/kvs/keys/beta", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/kvs/keys/beta", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestKeyCountEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	doJSON(t, r, http.MethodPut, "/kvs/keys/gamma", wire.PutRequest{Value: "v1"})

	w := doJSON(t, r, http.MethodGet, "/kvs/key-count", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp wire.KeyCountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.KeyCount)
}

func TestShardsEndpointListsOwnBucket(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/kvs/shards", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp wire.ShardsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Shards, 1)
}

func TestShardInfoOutOfRangeIsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/kvs/shards/99", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGossipMergesShard(t *testing.T) {
	r, d := newTestRouter(t)
	doJSON(t, r, http.MethodPut, "/kvs/keys/delta", wire.PutRequest{Value: "local"})

	w := doJSON(t, r, http.MethodPut, "/kvs/gossip", wire.GossipRequest{
		KVS: map[string]store.Entry{"delta": {Value: "remote", LastWrite: time.Now().UnixNano() + 1e9}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	status, value, _, _ := d.Get(context.Background(), "delta", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "remote", value)
}
