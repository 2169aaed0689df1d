package service_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	svc "wisefido-sleep-report/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetchSleepSessions_RequestBody(t *testing.T) {
	var received svc.VendorRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/sleep/getSleepSessions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": 0, "msg": "ok", "data": [
			{"deviceCode": "SLP-001", "startTime": 1755727200, "endTime": 1755734400, "sleepStages": [0, 1, 2, 3]}
		]}`))
	}))
	defer server.Close()

	client := svc.NewVendorClient(server.URL, "app-1", "secret-1", zap.NewNop())

	sessions, err := client.FetchSleepSessions("device-uuid-1", "SLP-001", 1755727200, 1755734400)

	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "SLP-001", sessions[0].DeviceCode)
	assert.Equal(t, []int{0, 1, 2, 3}, sessions[0].SleepStages)

	// 请求体携带 token 和完整的查询参数，deviceCode 随请求发给厂家
	require.NotNil(t, received.Token)
	assert.Equal(t, "app-1", received.Token.AppId)
	assert.Equal(t, "secret-1", received.Token.SecureKey)
	assert.Equal(t, "device-uuid-1", received.Data["userId"])
	assert.Equal(t, "SLP-001", received.Data["deviceCode"])
	assert.Equal(t, float64(1755727200), received.Data["startTime"])
	assert.Equal(t, float64(1755734400), received.Data["endTime"])
}

func TestFetchSleepSessions_VendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": 1001, "msg": "invalid token", "data": null}`))
	}))
	defer server.Close()

	client := svc.NewVendorClient(server.URL, "app-1", "bad-secret", zap.NewNop())

	sessions, err := client.FetchSleepSessions("device-uuid-1", "SLP-001", 0, 0)

	require.Error(t, err)
	assert.Nil(t, sessions)
	assert.Contains(t, err.Error(), "invalid token")
}
