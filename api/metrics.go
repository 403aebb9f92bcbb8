package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "pocketplan/api"
	tasksSpanName    = "tasks.list"
	tasksEventName   = "api.tasks.list"
	tasksEventDomain = "pocketplan"
)

// listRequestMetrics captures one GET /tasks request: stage timings, result
// size and outcome. Log emits the observation as an observability event on
// both the request span and the structured log, then ends the span.
type listRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	errorStage     string
}

func newListRequestMetrics(ctx context.Context, logger *log.Logger) (*listRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, tasksSpanName)
	return &listRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *listRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *listRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *listRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *listRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the observation. Severity derives from the response status
// and error, the span status mirrors the outcome.
func (m *listRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	severityText, severityNumber := severityForStatus(status, err)
	totalMillis := durationToMillis(time.Since(m.start))

	attrs := []attribute.KeyValue{
		attribute.String("http.route", "/tasks"),
		attribute.Int64("http.status_code", int64(status)),
		attribute.Float64("pocketplan.tasks.total_ms", totalMillis),
		attribute.Int("pocketplan.tasks.tasks_returned", m.tasksReturned),
	}
	attrMap := map[string]any{
		"http.route":                      "/tasks",
		"http.status_code":                status,
		"pocketplan.tasks.total_ms":       totalMillis,
		"pocketplan.tasks.tasks_returned": m.tasksReturned,
	}
	if m.fetchDuration > 0 {
		fetchMillis := durationToMillis(m.fetchDuration)
		attrs = append(attrs, attribute.Float64("pocketplan.tasks.fetch_ms", fetchMillis))
		attrMap["pocketplan.tasks.fetch_ms"] = fetchMillis
	}
	if m.encodeDuration > 0 {
		encodeMillis := durationToMillis(m.encodeDuration)
		attrs = append(attrs, attribute.Float64("pocketplan.tasks.encode_ms", encodeMillis))
		attrMap["pocketplan.tasks.encode_ms"] = encodeMillis
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("pocketplan.tasks.error_stage", m.errorStage))
		attrMap["pocketplan.tasks.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
		attrMap["error.message"] = err.Error()
	}

	m.span.SetAttributes(attrs...)

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", tasksEventName),
		attribute.String("event.domain", tasksEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))

	if err != nil || status >= http.StatusInternalServerError {
		description := http.StatusText(status)
		if err != nil {
			description = err.Error()
		}
		m.span.SetStatus(codes.Error, description)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      tasksEventName,
		"event.domain":    tasksEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc := m.span.SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}

	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error("observability.event")
	case "WARN":
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
