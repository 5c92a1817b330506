package gatewaytest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// handler is an http.Handler that returns an error.
type handler func(w http.ResponseWriter, r *http.Request) error

// middleware chains handlers.
type middleware func(handler) handler

// apiError is rendered the way the platform renders REST errors.
type apiError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return e.Message
}

func newAPIError(status, code int, msg string) *apiError {
	return &apiError{Status: status, Code: code, Message: msg}
}

// router serves the REST side of the double under a common prefix.
type router struct {
	mux    *http.ServeMux
	prefix string
	mw     []middleware
	tracer trace.Tracer
}

func newRouter(mux *http.ServeMux, prefix string, mw ...middleware) *router {
	return &router{
		mux:    mux,
		prefix: prefix,
		mw:     mw,
		tracer: noop.NewTracerProvider().Tracer("gatewaytest"),
	}
}

func (rt *router) get(path string, fn handler, mw ...middleware) {
	rt.handle(http.MethodGet, path, fn, mw...)
}

func (rt *router) post(path string, fn handler, mw ...middleware) {
	rt.handle(http.MethodPost, path, fn, mw...)
}

func (rt *router) handle(method, path string, fn handler, mw ...middleware) {
	fn = wrap(mw, fn)
	fn = wrap(rt.mw, fn)

	pattern := fmt.Sprintf("%s %s%s", method, rt.prefix, path)

	rt.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := rt.tracer.Start(ctx, pattern, trace.WithSpanKind(trace.SpanKindServer))
		span.SetAttributes(attribute.String("path", r.RequestURI))
		defer span.End()

		_ = fn(w, r.WithContext(ctx))
	})
}

// wrap middleware around the handler and execute in order given.
func wrap(mw []middleware, fn handler) handler {
	for _, mwFn := range slices.Backward(mw) {
		if mwFn != nil {
			fn = mwFn(fn)
		}
	}

	return fn
}

// errorsMW renders errors coming out of the call chain. Errors that are
// not an *apiError become a 500.
func errorsMW() middleware {
	return func(next handler) handler {
		return func(w http.ResponseWriter, r *http.Request) error {
			err := next(w, r)
			if err == nil {
				return nil
			}

			var apiErr *apiError
			if !errors.As(err, &apiErr) {
				apiErr = newAPIError(http.StatusInternalServerError, 0, http.StatusText(http.StatusInternalServerError))
			}

			return respondJSON(w, apiErr.Status, apiErr)
		}
	}
}

// panicsMW recovers from panics if they occur.
func panicsMW() middleware {
	return func(next handler) handler {
		return func(w http.ResponseWriter, r *http.Request) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, debug.Stack())
				}
			}()

			return next(w, r)
		}
	}
}

// respondJSON writes data with statusCode.
func respondJSON(w http.ResponseWriter, statusCode int, data any) error {
	if statusCode == http.StatusNoContent {
		w.WriteHeader(statusCode)
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_, err = w.Write(jsonData)
	return err
}
