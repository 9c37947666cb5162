package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"asthmapredict/monitoring"
	"asthmapredict/patient"
	"asthmapredict/predict"
)

const (
	liveWriteWait    = 10 * time.Second
	livePongWait     = 60 * time.Second
	livePingInterval = 30 * time.Second
	livePredictWait  = 10 * time.Second
	liveMaxMessage   = 16 << 10
)

// liveRequest 客户端消息
type liveRequest struct {
	Type   string            `json:"type"`
	Values map[string]string `json:"values,omitempty"`
}

// liveResponse 服务端消息
type liveResponse struct {
	Type          string               `json:"type"`
	Label         *int                 `json:"label,omitempty"`
	Outcome       string               `json:"prediction,omitempty"`
	Confidence    *float64             `json:"confidence,omitempty"`
	Probabilities []float64            `json:"probabilities,omitempty"`
	Message       string               `json:"message,omitempty"`
	Error         string               `json:"error,omitempty"`
	Details       []patient.FieldError `json:"details,omitempty"`
}

// liveClient 实时预测客户端（每个浏览器页面一个）
type liveClient struct {
	id     string
	conn   *websocket.Conn
	send   chan liveResponse
	logger *zap.Logger
}

// handleLive 处理实时预测WebSocket连接
func (h *Handlers) handleLive(w http.ResponseWriter, r *http.Request) {
	var header http.Header
	if id := GetRequestID(r.Context()); id != "" {
		header = http.Header{"X-Request-Id": {id}}
	}
	conn, err := h.upgrader.Upgrade(w, r, header)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &liveClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan liveResponse, 16),
	}
	client.logger = h.logger.With(
		zap.String("client", client.id),
		zap.String("request_id", GetRequestID(r.Context())),
	)
	monitoring.LiveConnections.Inc()
	client.logger.Debug("live client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		monitoring.LiveConnections.Dec()
		client.logger.Debug("live client disconnected")
	}()

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()
	client.readPump(ctx, h.service)
	close(client.send)
	<-done
}

// readPump 读取泵，按顺序响应每个请求
func (c *liveClient) readPump(ctx context.Context, service *predict.Service) {
	c.conn.SetReadLimit(liveMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.send <- liveResponse{Type: "error", Error: "malformed message"}
			continue
		}

		switch req.Type {
		case "predict":
			c.send <- c.predict(ctx, service, req.Values)
		case "ping":
			c.send <- liveResponse{Type: "pong"}
		default:
			c.send <- liveResponse{Type: "error", Error: "unknown message type: " + req.Type}
		}
	}
}

func (c *liveClient) predict(ctx context.Context, service *predict.Service, values map[string]string) liveResponse {
	record, err := patient.FromValues(values, true)
	if err != nil {
		var verrs patient.ValidationErrors
		if errors.As(err, &verrs) {
			return liveResponse{Type: "error", Error: "invalid patient record", Details: verrs}
		}
		return liveResponse{Type: "error", Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, livePredictWait)
	defer cancel()
	result, err := service.Predict(ctx, record, predict.SourceLive)
	if err != nil {
		_, msg := predictErrorStatus(err)
		return liveResponse{Type: "error", Error: msg}
	}
	label, confidence := result.Label, result.Confidence
	return liveResponse{
		Type:          "prediction",
		Label:         &label,
		Outcome:       result.Outcome,
		Confidence:    &confidence,
		Probabilities: result.Probabilities,
		Message:       result.Message(),
	}
}

// writePump 写入泵
func (c *liveClient) writePump() {
	ticker := time.NewTicker(livePingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("websocket write error", zap.Error(err))
				c.abandon()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.abandon()
				return
			}
		}
	}
}

// abandon 关闭无法写入的连接，并丢弃读取泵之后排入的消息
func (c *liveClient) abandon() {
	c.conn.Close()
	for range c.send {
	}
}
