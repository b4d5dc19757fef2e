package tracking

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-marketplace-api/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubStreamsLocationUpdates(t *testing.T) {
	hub := NewHub([]string{"*"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "order-1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Subscribers("order-1") == 1 }, time.Second, 10*time.Millisecond)

	lat, lon := 40.7, -74.0
	now := time.Now()
	hub.PublishLocation("order-2", models.DriverLocation{Latitude: &lat, Longitude: &lon, LastUpdated: &now})
	hub.PublishLocation("order-1", models.DriverLocation{Latitude: &lat, Longitude: &lon, LastUpdated: &now})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var update Update
	require.NoError(t, json.Unmarshal(data, &update))
	assert.Equal(t, "order-1", update.OrderID)
	require.NotNil(t, update.DriverLocation.Latitude)
	assert.Equal(t, 40.7, *update.DriverLocation.Latitude)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers("order-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub([]string{"https://app.example.com"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, "order-1")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
