// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var otelEnvVars = []string{
	"OTEL_SERVICE_NAME",
	"OTEL_SERVICE_VERSION",
	"OTEL_EXPORTER_OTLP_PROTOCOL",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_INSECURE",
	"OTEL_TRACES_EXPORTER",
	"OTEL_TRACES_SAMPLE_RATIO",
	"OTEL_METRICS_EXPORTER",
	"OTEL_LOGS_EXPORTER",
	"OTEL_PROPAGATORS",
}

// setOTelEnv blanks every OTEL variable for the test, then applies env
func setOTelEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, key := range otelEnvVars {
		t.Setenv(key, "")
	}
	for key, value := range env {
		t.Setenv(key, value)
	}
}

func TestOTelConfigFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want OTelConfig
	}{
		{
			name: "defaults",
			want: OTelConfig{
				ServiceName:       "examining-committee-service",
				Protocol:          OTelProtocolGRPC,
				TracesExporter:    OTelExporterNone,
				TracesSampleRatio: 1.0,
				MetricsExporter:   OTelExporterNone,
				LogsExporter:      OTelExporterNone,
				Propagators:       OTelDefaultPropagators,
			},
		},
		{
			name: "collector over http",
			env: map[string]string{
				"OTEL_SERVICE_NAME":           "committee-api",
				"OTEL_SERVICE_VERSION":        "0.4.0",
				"OTEL_EXPORTER_OTLP_PROTOCOL": OTelProtocolHTTP,
				"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4318",
				"OTEL_EXPORTER_OTLP_INSECURE": "true",
				"OTEL_TRACES_EXPORTER":        OTelExporterOTLP,
				"OTEL_TRACES_SAMPLE_RATIO":    "0.25",
				"OTEL_PROPAGATORS":            "tracecontext",
			},
			want: OTelConfig{
				ServiceName:       "committee-api",
				ServiceVersion:    "0.4.0",
				Protocol:          OTelProtocolHTTP,
				Endpoint:          "collector:4318",
				Insecure:          true,
				TracesExporter:    OTelExporterOTLP,
				TracesSampleRatio: 0.25,
				MetricsExporter:   OTelExporterNone,
				LogsExporter:      OTelExporterNone,
				Propagators:       "tracecontext",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setOTelEnv(t, tt.env)
			assert.Equal(t, tt.want, OTelConfigFromEnv())
		})
	}
}

func TestOTelConfigFromEnv_Parsing(t *testing.T) {
	tests := []struct {
		name         string
		ratio        string
		insecure     string
		wantRatio    float64
		wantInsecure bool
	}{
		{name: "zero ratio", ratio: "0", wantRatio: 0},
		{name: "half ratio", ratio: "0.5", wantRatio: 0.5},
		{name: "negative ratio falls back", ratio: "-0.5", wantRatio: 1.0},
		{name: "ratio above one falls back", ratio: "1.5", wantRatio: 1.0},
		{name: "non-numeric ratio falls back", ratio: "half", wantRatio: 1.0},
		{name: "insecure true", insecure: "true", wantRatio: 1.0, wantInsecure: true},
		{name: "only lowercase true enables insecure", insecure: "TRUE", wantRatio: 1.0},
		{name: "1 does not enable insecure", insecure: "1", wantRatio: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setOTelEnv(t, map[string]string{
				"OTEL_TRACES_SAMPLE_RATIO":    tt.ratio,
				"OTEL_EXPORTER_OTLP_INSECURE": tt.insecure,
			})
			cfg := OTelConfigFromEnv()
			assert.Equal(t, tt.wantRatio, cfg.TracesSampleRatio)
			assert.Equal(t, tt.wantInsecure, cfg.Insecure)
		})
	}
}

func TestSetupOTelSDKWithConfig_Disabled(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  OTelConfig
	}{
		{name: "zero value", cfg: OTelConfig{}},
		{
			name: "explicitly disabled",
			cfg: OTelConfig{
				ServiceName:     "committee-api",
				Protocol:        OTelProtocolGRPC,
				TracesExporter:  OTelExporterNone,
				MetricsExporter: OTelExporterNone,
				LogsExporter:    OTelExporterNone,
				Propagators:     OTelDefaultPropagators,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shutdown, err := SetupOTelSDKWithConfig(ctx, tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, shutdown)
			assert.NoError(t, shutdown(ctx))
			assert.NoError(t, shutdown(ctx), "shutdown can be called twice")
		})
	}
}

func TestSetupOTelSDK_FromEnv(t *testing.T) {
	setOTelEnv(t, nil)
	ctx := context.Background()

	shutdown, err := SetupOTelSDK(ctx)
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))

	setOTelEnv(t, map[string]string{"OTEL_PROPAGATORS": "xray"})
	_, err = SetupOTelSDK(ctx)
	assert.Error(t, err)
}

func TestNewPropagator(t *testing.T) {
	tests := []struct {
		name       string
		value      string
		wantFields []string
		wantErr    bool
	}{
		{
			name:       "defaults",
			value:      OTelDefaultPropagators,
			wantFields: []string{"traceparent", "tracestate", "baggage", "uber-trace-id"},
		},
		{
			name:       "trace context only",
			value:      "tracecontext",
			wantFields: []string{"traceparent", "tracestate"},
		},
		{
			name:       "spaces and empty entries are ignored",
			value:      " baggage, ,",
			wantFields: []string{"baggage"},
		},
		{
			name:  "empty",
			value: "",
		},
		{
			name:    "unsupported",
			value:   "tracecontext,b3",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prop, err := newPropagator(OTelConfig{Propagators: tt.value})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.wantFields, prop.Fields())
		})
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource(OTelConfig{ServiceName: "committee-api", ServiceVersion: "0.4.0"})
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "committee-api", attrs["service.name"])
	assert.Equal(t, "0.4.0", attrs["service.version"])
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		raw      string
		insecure bool
		want     string
	}{
		{raw: "collector:4317", insecure: true, want: "http://collector:4317"},
		{raw: "collector:4317", want: "https://collector:4317"},
		{raw: "http://collector:4318", want: "http://collector:4318"},
		{raw: "https://otel.example.edu", insecure: true, want: "https://otel.example.edu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, endpointURL(tt.raw, tt.insecure))
	}
}
