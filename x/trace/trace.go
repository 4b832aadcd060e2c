// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package trace

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/moov-io/sepagate/pkg/config"

	"github.com/go-kit/kit/log"
	"github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	jaegermetrics "github.com/uber/jaeger-lib/metrics/prometheus"
)

// jaeger's own counters land on the default prometheus registry served by the admin server.
var metricsFactory = jaegermetrics.New(jaegermetrics.WithRegisterer(prometheus.DefaultRegisterer))

// NewTracer installs a jaeger tracer as the opentracing global. When tracing
// is disabled the global no-op tracer is returned untouched.
func NewTracer(logger log.Logger, serviceName string, cfg config.Tracing) (opentracing.Tracer, io.Closer, error) {
	if !cfg.Enabled {
		return opentracing.GlobalTracer(), ioutil.NopCloser(nil), nil
	}

	conf := jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler:     sampler(cfg.SampleRate),
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           cfg.LogSpans,
			LocalAgentHostPort: cfg.AgentAddress,
		},
	}
	tracer, closer, err := conf.NewTracer(
		jaegercfg.Logger(&jaegerLogger{inner: logger}),
		jaegercfg.Metrics(metricsFactory),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: %v", err)
	}
	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}

// sampler records everything for rates of 0 or 1 and a fraction of traces
// otherwise.
func sampler(rate float64) *jaegercfg.SamplerConfig {
	if rate <= 0 || rate >= 1 {
		return &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeConst, Param: 1.0}
	}
	return &jaegercfg.SamplerConfig{Type: jaeger.SamplerTypeProbabilistic, Param: rate}
}

var _ jaeger.Logger = (*jaegerLogger)(nil)

type jaegerLogger struct {
	inner log.Logger
}

func (l *jaegerLogger) Error(msg string) {
	l.inner.Log("tracing", msg, "level", "error")
}

func (l *jaegerLogger) Infof(msg string, args ...interface{}) {
	l.inner.Log("tracing", fmt.Sprintf(msg, args...))
}
