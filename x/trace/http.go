// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package trace

import (
	"net/http"

	moovhttp "github.com/moov-io/base/http"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

// FromRequest starts a server span named after the route. An incoming trace
// in the request headers becomes the parent, and the X-Request-ID is tagged
// so spans can be found from log lines.
func FromRequest(name string, req *http.Request) opentracing.Span {
	tracer := opentracing.GlobalTracer()

	parent, _ := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(req.Header))
	span := tracer.StartSpan(name, ext.RPCServerOption(parent))

	ext.Component.Set(span, "sepagate")
	ext.HTTPMethod.Set(span, req.Method)
	ext.HTTPUrl.Set(span, req.URL.Path)
	if requestID := moovhttp.GetRequestID(req); requestID != "" {
		span.SetTag("requestID", requestID)
	}
	return span
}
