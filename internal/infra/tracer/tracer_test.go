package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"learnloop/internal/infra/config"
)

func TestSetupDisabledInstallsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{Enabled: false})
	require.NoError(t, err)
	defer shutdown(context.Background())

	_, ok := otel.GetTracerProvider().(noop.TracerProvider)
	assert.True(t, ok, "expected noop provider, got %T", otel.GetTracerProvider())
}

func TestSetupNoopExporters(t *testing.T) {
	for _, exporter := range []string{"noop", ""} {
		shutdown, err := Setup(context.Background(), config.TracerConfig{
			Enabled:  true,
			Exporter: exporter,
		})
		require.NoError(t, err, exporter)
		assert.NoError(t, shutdown(context.Background()))
	}
}

func TestSetupStdoutExporter(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TracerConfig{
		Enabled:  true,
		Exporter: "stdout",
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupUnsupportedExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TracerConfig{
		Enabled:  true,
		Exporter: "jaeger",
	})
	assert.Error(t, err)
}

func TestSpanHelpers(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	ctx, span := StartSpan(context.Background(), "task.execute")
	require.NotNil(t, ctx)

	SetOK(span)
	RecordError(span, errors.New("agent unreachable"))
	span.End()
}

func TestAttrHelpers(t *testing.T) {
	s := StringAttr("agent.id", "tutor-chat")
	assert.Equal(t, "agent.id", string(s.Key))
	assert.Equal(t, "tutor-chat", s.Value.AsString())

	b := BoolAttr("task.success", true)
	assert.Equal(t, "task.success", string(b.Key))
	assert.True(t, b.Value.AsBool())
}
