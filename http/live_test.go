package http

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asthmapredict/ml"
	"asthmapredict/patient"
)

func dialLive(t *testing.T, model ml.Classifier) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(newTestHandler(t, model))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	return conn
}

func exchange(t *testing.T, conn *websocket.Conn, req interface{}) liveResponse {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteJSON(req))
	var resp liveResponse
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestLivePredict(t *testing.T) {
	model := asthmaModel()
	conn := dialLive(t, model)

	resp := exchange(t, conn, liveRequest{Type: "predict", Values: map[string]string{"Wheezing": "Yes"}})
	require.Equal(t, "prediction", resp.Type)
	require.NotNil(t, resp.Label)
	assert.Equal(t, 1, *resp.Label)
	assert.Equal(t, "Asthma", resp.Outcome)
	assert.Equal(t, "The model predicts: Asthma", resp.Message)

	want := patient.Defaults()
	want.Wheezing = 1
	assert.Equal(t, want.Vector(), model.lastCall())
}

func TestLiveNoAsthmaKeepsLabel(t *testing.T) {
	conn := dialLive(t, &fakeModel{prediction: ml.Prediction{Label: 0, Confidence: 0.6}})

	resp := exchange(t, conn, liveRequest{Type: "predict"})
	require.Equal(t, "prediction", resp.Type)
	require.NotNil(t, resp.Label)
	assert.Equal(t, 0, *resp.Label)
	assert.Equal(t, "No Asthma", resp.Outcome)
}

func TestLiveKeepsZeroConfidence(t *testing.T) {
	conn := dialLive(t, &fakeModel{prediction: ml.Prediction{Label: 0}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.WriteJSON(liveRequest{Type: "predict"}))
	var raw map[string]interface{}
	require.NoError(t, conn.ReadJSON(&raw))
	assert.Equal(t, "prediction", raw["type"])
	assert.Contains(t, raw, "confidence")
	assert.Equal(t, 0.0, raw["confidence"])
}

func TestLiveValidationError(t *testing.T) {
	model := asthmaModel()
	conn := dialLive(t, model)

	resp := exchange(t, conn, liveRequest{Type: "predict", Values: map[string]string{"Age": "200"}})
	assert.Equal(t, "error", resp.Type)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "Age", resp.Details[0].Field)
	assert.Nil(t, model.lastCall())
}

func TestLiveProtocolErrors(t *testing.T) {
	conn := dialLive(t, asthmaModel())

	resp := exchange(t, conn, liveRequest{Type: "ping"})
	assert.Equal(t, "pong", resp.Type)

	resp = exchange(t, conn, liveRequest{Type: "subscribe"})
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Error, "unknown message type")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	var malformed liveResponse
	require.NoError(t, conn.ReadJSON(&malformed))
	assert.Equal(t, "malformed message", malformed.Error)

	// The connection survives bad input.
	resp = exchange(t, conn, liveRequest{Type: "predict"})
	assert.Equal(t, "prediction", resp.Type)
}
