package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("TRACING_ENABLED", "TRUE")
	t.Setenv("TRACING_EXPORTER", "OTLP")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ServiceName != "drone-dispatch" {
		t.Errorf("service name = %q", cfg.ServiceName)
	}
}

func TestTracingConfigIgnoresBadRatio(t *testing.T) {
	t.Setenv("TRACING_SAMPLE_RATIO", "7")
	if got := TracingConfigFromEnv().SampleRatio; got != 1 {
		t.Errorf("ratio = %v, want 1", got)
	}
}

func TestInitTracingStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Output:      &buf,
	})
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := Tracer().Start(context.Background(), "upload")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown)

	if !strings.Contains(buf.String(), `"upload"`) {
		t.Errorf("span not exported: %s", buf.String())
	}

	// leave a noop provider behind for other tests
	if _, err := InitTracing(context.Background(), TracingConfig{}); err != nil {
		t.Fatal(err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"})
	if err == nil || !strings.Contains(err.Error(), "zipkin") {
		t.Errorf("err = %v", err)
	}
}
