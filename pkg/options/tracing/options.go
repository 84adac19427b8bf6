// Package tracing provides OpenTelemetry tracing options.
package tracing

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/persona-assistant/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// ExporterType 导出器类型。
type ExporterType string

const (
	ExporterOTLPGRPC ExporterType = "otlp_grpc"
	ExporterOTLPHTTP ExporterType = "otlp_http"
	ExporterStdout   ExporterType = "stdout"
	ExporterNoop     ExporterType = "noop"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName    string `json:"service-name" mapstructure:"service-name"`
	ServiceVersion string `json:"service-version" mapstructure:"service-version"`
	Environment    string `json:"environment" mapstructure:"environment"`

	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`

	// Endpoint OTLP 地址。gRPC 为 "localhost:4317"，HTTP 为 "localhost:4318"。
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Insecure bool   `json:"insecure" mapstructure:"insecure"`

	// SampleRatio 根 span 采样比例，子 span 跟随父级决定。
	SampleRatio float64 `json:"sample-ratio" mapstructure:"sample-ratio"`
}

// NewOptions creates default tracing options. Tracing is off by default.
func NewOptions() *Options {
	return &Options{
		ServiceName:    "persona-assistant",
		ServiceVersion: "dev",
		Environment:    "development",
		ExporterType:   ExporterOTLPGRPC,
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRatio:    1.0,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "tracing."
	fs.BoolVar(&o.Enabled, p+"enabled", o.Enabled, "Enable OpenTelemetry tracing.")
	fs.StringVar(&o.ServiceName, p+"service-name", o.ServiceName, "Service name reported on spans.")
	fs.StringVar(&o.Environment, p+"environment", o.Environment, "Deployment environment.")
	fs.StringVar((*string)(&o.ExporterType), p+"exporter-type", string(o.ExporterType), "Exporter type (otlp_grpc, otlp_http, stdout, noop).")
	fs.StringVar(&o.Endpoint, p+"endpoint", o.Endpoint, "OTLP exporter endpoint.")
	fs.BoolVar(&o.Insecure, p+"insecure", o.Insecure, "Disable TLS for the OTLP connection.")
	fs.Float64Var(&o.SampleRatio, p+"sample-ratio", o.SampleRatio, "Root span sampling ratio (0.0 to 1.0).")
}

// Validate validates the tracing options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.ServiceName == "" {
		errs = append(errs, fmt.Errorf("tracing: service name is required"))
	}
	switch o.ExporterType {
	case ExporterOTLPGRPC, ExporterOTLPHTTP:
		if o.Endpoint == "" {
			errs = append(errs, fmt.Errorf("tracing: endpoint is required for exporter %s", o.ExporterType))
		}
	case ExporterStdout, ExporterNoop:
	default:
		errs = append(errs, fmt.Errorf("tracing: invalid exporter type %q", o.ExporterType))
	}
	if o.SampleRatio < 0 || o.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing: sample ratio must be between 0 and 1, got %f", o.SampleRatio))
	}
	return errs
}
