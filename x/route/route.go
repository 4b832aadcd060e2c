// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package route

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	moovhttp "github.com/moov-io/base/http"
	"github.com/moov-io/base/idempotent"
	"github.com/moov-io/base/idempotent/lru"
	"github.com/moov-io/sepagate/x/trace"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/prometheus"
	opentracing "github.com/opentracing/opentracing-go"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	IdempotentRecorder = lru.New()

	// Prometheus Metrics
	Histogram = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Name: "http_response_duration_seconds",
		Help: "Histogram representing the http response durations",
	}, []string{"route"})
)

type Responder struct {
	XRequestID string

	logger log.Logger

	request *http.Request
	span    opentracing.Span

	writer *moovhttp.ResponseWriter
	err    error
}

func NewResponder(logger log.Logger, w http.ResponseWriter, r *http.Request) *Responder {
	resp := &Responder{
		XRequestID: moovhttp.GetRequestID(r),
		logger:     logger,
		request:    r,
	}
	resp.span = trace.FromRequest(routeName(r), r)
	resp.writer, resp.err = wrapResponseWriter(logger, w, r)
	return resp
}

// Seen reports if the request was answered already, in which case handlers must return.
func (r *Responder) Seen() bool {
	if r == nil {
		return true
	}
	if r.err != nil {
		r.finishSpan()
		return true
	}
	return false
}

// Context returns the request's context carrying the route's span.
func (r *Responder) Context() context.Context {
	return opentracing.ContextWithSpan(r.request.Context(), r.span)
}

func (r *Responder) Log(kvpairs ...interface{}) {
	if r == nil || r.writer == nil {
		return
	}
	var args = []interface{}{
		"requestID", r.XRequestID,
	}
	args = append(args, kvpairs...)
	r.logger.Log(args...)
}

func (r *Responder) Respond(fn func(http.ResponseWriter)) {
	if r == nil {
		return
	}
	r.finishSpan()
	r.writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	fn(r.writer)
}

// RespondXML writes a stored document as-is.
func (r *Responder) RespondXML(doc []byte) {
	if r == nil {
		return
	}
	r.finishSpan()
	r.writer.Header().Set("Content-Type", "application/xml; charset=utf-8")
	r.writer.WriteHeader(http.StatusOK)
	r.writer.Write(doc)
}

func (r *Responder) Problem(err error) {
	if r == nil {
		return
	}
	r.finishSpan()
	r.writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	moovhttp.Problem(r.writer, err)
}

// ProblemStatus writes err with the given HTTP status code.
func (r *Responder) ProblemStatus(err error, status int) {
	if r == nil {
		return
	}
	r.finishSpan()
	r.writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	r.writer.WriteHeader(status)
	json.NewEncoder(r.writer).Encode(map[string]string{
		"error": err.Error(),
	})
}

func (r *Responder) NotFound() {
	r.ProblemStatus(errors.New("not found"), http.StatusNotFound)
}

func (r *Responder) finishSpan() {
	if r.span != nil {
		r.span.Finish()
	}
}

func routeName(r *http.Request) string {
	return fmt.Sprintf("%s-%s", strings.ToLower(r.Method), CleanPath(r.URL.Path))
}

func wrapResponseWriter(logger log.Logger, w http.ResponseWriter, r *http.Request) (*moovhttp.ResponseWriter, error) {
	ww := moovhttp.Wrap(logger, Histogram.With("route", routeName(r)), w, r)

	if _, seen := idempotent.FromRequest(r, IdempotentRecorder); seen {
		idempotent.SeenBefore(ww)
		return ww, idempotent.ErrSeenBefore
	}

	return ww, nil
}

var baseIdRegex = regexp.MustCompile(`([a-f0-9]{40})`)

// CleanPath takes a URL path and formats it for Prometheus metrics
//
// This method replaces /'s with -'s and strips out moov/base.ID() values from URL path slugs.
func CleanPath(path string) string {
	parts := strings.Split(path, "/")
	var out []string
	for i := range parts {
		if parts[i] == "" || baseIdRegex.MatchString(parts[i]) {
			continue // assume it's a moov/base.ID() value
		}
		out = append(out, parts[i])
	}
	return strings.Join(out, "-")
}
