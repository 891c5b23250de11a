// Package telemetry owns the OpenTelemetry tracer and meter providers.
//
// Telemetry is off by default. When enabled it exports spans and metrics
// over OTLP (gRPC or HTTP/protobuf). Failures to build a provider mark the
// instance degraded instead of failing startup; Tracer and Meter then fall
// back to the global no-op providers.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry))
//	defer tel.Shutdown(context.Background())
//	tracer := tel.Tracer("cadence/orchestrator")
//
// Tests use NewTestTelemetry, which records spans in memory and collects
// metrics through a manual reader.
package telemetry
