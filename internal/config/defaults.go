package config

// defaultYAML is loaded before any file or environment source.
const defaultYAML = `
server:
  http_host: 0.0.0.0
  http_port: 9090
  shutdown_timeout: 10s
  cors_origins: ["*"]
planning:
  default_cycle_length: 28
  orchestration_timeout: 8s
  recent_log_limit: 3
  plan_days: 7
  default_timezone: UTC
cache:
  default_ttl: 24h
  degraded_ttl: 5m
  max_entries: 10000
store:
  driver: memory
  path: ""
sources:
  mode: heuristic
  timeout: 6s
  rate_limit: 5
  burst: 5
  max_retries: 2
  backoff: 200ms
  llm_model: gpt-4o-mini
events:
  nats_url: ""
  subject_prefix: cadence
logging:
  level: info
  format: json
  sampling: true
  otel: false
telemetry:
  enabled: false
  service_name: cadence
  endpoint: localhost:4317
  protocol: grpc
  insecure: true
  sample_rate: 1.0
`
