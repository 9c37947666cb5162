package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"asthmapredict/ml"
	"asthmapredict/patient"
	"asthmapredict/predict"
)

// ModelInfoProvider 提供当前模型信息
type ModelInfoProvider interface {
	Info() ml.ModelInfo
}

// Handlers 处理器集合
type Handlers struct {
	service  *predict.Service
	models   ModelInfoProvider
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandlers 创建处理器集合，models 可以为 nil
func NewHandlers(service *predict.Service, models ModelInfoProvider, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		service: service,
		models:  models,
		logger:  logger.Named("http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Register 注册所有处理器
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleForm)
	mux.HandleFunc("POST /predict", h.handleFormPredict)
	mux.Handle("GET /static/", staticHandler())

	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/fields", handleFields)
	mux.HandleFunc("GET /api/schema", handleSchema)
	mux.HandleFunc("GET /api/model", h.handleModel)
	mux.HandleFunc("POST /api/predict", h.handlePredict)
	mux.HandleFunc("GET /api/ws", h.handleLive)

	mux.Handle("GET /metrics", promhttp.Handler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sections": patient.Sections(),
		"fields":   patient.Fields(),
	})
}

func handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	json.NewEncoder(w).Encode(patient.Schema())
}

func (h *Handlers) handleModel(w http.ResponseWriter, r *http.Request) {
	if h.models == nil {
		writeError(w, http.StatusNotFound, "model information unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.models.Info())
}

type predictResponse struct {
	predict.Result
	Message string `json:"message"`
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	record, err := patient.DecodeJSON(body)
	if err != nil {
		h.writeRecordError(w, err)
		return
	}

	result, err := h.service.Predict(r.Context(), record, predict.SourceAPI)
	if err != nil {
		status, msg := predictErrorStatus(err)
		writeError(w, status, msg, nil)
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Result: result, Message: result.Message()})
}

func (h *Handlers) writeRecordError(w http.ResponseWriter, err error) {
	var verrs patient.ValidationErrors
	if errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "invalid patient record", verrs)
		return
	}
	h.logger.Error("record encoding failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error", nil)
}

// predictErrorStatus 将预测错误映射为HTTP状态码和可返回给客户端的消息
func predictErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ml.ErrNoModel):
		return http.StatusServiceUnavailable, "model not loaded"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "prediction timed out"
	case errors.Is(err, ml.ErrFeatureMismatch):
		return http.StatusInternalServerError, "model does not accept this feature record"
	default:
		return http.StatusInternalServerError, "prediction failed"
	}
}

type errorResponse struct {
	Error   string               `json:"error"`
	Details []patient.FieldError `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string, details patient.ValidationErrors) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
