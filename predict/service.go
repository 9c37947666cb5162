// Package predict runs a patient record through the classifier and turns the
// label into the outcome shown to the user.
package predict

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"asthmapredict/ml"
	"asthmapredict/monitoring"
	"asthmapredict/patient"
)

// Outcomes shown for the two classes.
const (
	OutcomeAsthma   = "Asthma"
	OutcomeNoAsthma = "No Asthma"
)

// Sources label where a prediction request came from.
const (
	SourceForm = "form"
	SourceAPI  = "api"
	SourceLive = "live"
	SourceTUI  = "tui"
	SourceCLI  = "cli"
)

var tracer = otel.Tracer("asthmapredict/predict")

// Result is one prediction together with the record it was made from.
type Result struct {
	Label         int            `json:"label"`
	Outcome       string         `json:"prediction"`
	Confidence    float64        `json:"confidence"`
	Probabilities []float64      `json:"probabilities,omitempty"`
	Record        patient.Record `json:"features"`
}

// Message is the banner text for the result.
func (r Result) Message() string {
	return "The model predicts: " + r.Outcome
}

// HasConfidence reports whether the model gave class probabilities, and so
// whether Confidence means anything.
func (r Result) HasConfidence() bool {
	return len(r.Probabilities) > 0
}

// Outcome maps a class label to its display text. Only label 1 means asthma.
func Outcome(label int) string {
	if label == 1 {
		return OutcomeAsthma
	}
	return OutcomeNoAsthma
}

type Service struct {
	model  ml.Classifier
	logger *zap.Logger
}

func NewService(model ml.Classifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{model: model, logger: logger.Named("predict")}
}

// Predict classifies one record. source is recorded in metrics and logs.
func (s *Service) Predict(ctx context.Context, record patient.Record, source string) (Result, error) {
	ctx, span := tracer.Start(ctx, "predict.Predict",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("prediction.source", source)),
	)
	defer span.End()

	if s == nil || s.model == nil {
		monitoring.PredictionErrors.WithLabelValues(source, "no_model").Inc()
		span.SetStatus(codes.Error, ml.ErrNoModel.Error())
		return Result{}, ml.ErrNoModel
	}

	features := record.Vector()
	s.logger.Debug("making a prediction", zap.String("source", source), zap.Any("features", record))

	start := time.Now()
	prediction, err := s.model.Predict(ctx, features)
	monitoring.PredictionDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.PredictionErrors.WithLabelValues(source, errorReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("prediction failed", zap.String("source", source), zap.Error(err))
		return Result{}, err
	}

	result := Result{
		Label:         prediction.Label,
		Outcome:       Outcome(prediction.Label),
		Confidence:    prediction.Confidence,
		Probabilities: prediction.Probabilities,
		Record:        record,
	}
	monitoring.PredictionsTotal.WithLabelValues(result.Outcome, source).Inc()
	span.SetAttributes(
		attribute.Int("prediction.label", result.Label),
		attribute.Float64("prediction.confidence", result.Confidence),
	)
	s.logger.Info("prediction result",
		zap.String("source", source),
		zap.Int("label", result.Label),
		zap.String("outcome", result.Outcome),
		zap.Float64("confidence", result.Confidence),
	)
	return result, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ml.ErrNoModel):
		return "no_model"
	case errors.Is(err, ml.ErrFeatureMismatch):
		return "feature_mismatch"
	default:
		return "model_error"
	}
}
