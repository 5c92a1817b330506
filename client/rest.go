package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Do authenticates req with the client token, fires it, and writes the
// response to the given destination if any.
func (c *Client) Do(req *http.Request, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return err
		}
	}

	route := settings.route
	if route == "" {
		route = req.URL.Path
	}

	ctx, span := c.tracer.Start(req.Context(), "rest "+req.Method+" "+route,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("http.route", route),
			attribute.String("client.id", c.id),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	req.Header.Set("Authorization", c.accountType.authorization(c.token))

	doFunc := func(resp *http.Response) error {
		if settings.responseBody != nil {
			d := json.NewDecoder(resp.Body)

			if settings.useJSONNum {
				d.UseNumber()
			}

			if err := d.Decode(settings.responseBody); err != nil {
				return fmt.Errorf("decoding body: %w", err)
			}
		}

		return nil
	}

	if err := c.exec(req, expCode, doFunc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// Request instantiates an *http.Request with the provided information.
// It's just a convenience method that wraps the public Request func.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, opts...)
}

// Endpoint resolves route against the REST base URL, for example
// c.Endpoint("/channels/123/messages").
func (c *Client) Endpoint(route string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	endpoint := *c.apiBase
	endpoint.Path = strings.TrimSuffix(endpoint.Path, "/") + "/" + strings.TrimPrefix(route, "/")
	endpoint.RawPath = ""
	endpoint.RawQuery = encodeQuery(settings.queryStrings)

	return &endpoint
}

// exec runs the request and injected function on success after validating the expected status code.
func (c *Client) exec(req *http.Request, expCode int, fn execFn) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("exec http do: %w", err)
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err = io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		if err = resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != expCode {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
		if err != nil {
			b = []byte("unable to read body")
		}

		statusErr := ErrUnexpectedStatusCode
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			statusErr = fmt.Errorf("%w: %w", ErrAuthFailure, ErrUnexpectedStatusCode)
		}

		return &UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(b),
			Err:        statusErr,
		}
	}

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}

// login verifies the token and resolves the gateway URL.
func (c *Client) login(ctx context.Context) error {
	c.setStatus(StatusLoggingIn)

	ctx, span := c.tracer.Start(ctx, "login", trace.WithAttributes(
		attribute.String("client.id", c.id),
		attribute.String("account.type", c.accountType.String()),
	))
	defer span.End()

	req, err := Request(ctx, c.Endpoint("/users/@me"), http.MethodGet)
	if err != nil {
		return err
	}

	var self SelfUser
	if err := c.Do(req, http.StatusOK, WithDestination(&self)); err != nil {
		span.SetStatus(codes.Error, "token rejected")
		if errors.Is(err, ErrAuthFailure) {
			return fmt.Errorf("%w: %w", ErrLoginFailed, err)
		}
		return fmt.Errorf("verifying token: %w", err)
	}

	req, err = Request(ctx, c.Endpoint(c.accountType.gatewayRoute()), http.MethodGet)
	if err != nil {
		return err
	}

	var gateway struct {
		URL string `json:"url"`
	}
	if err := c.Do(req, http.StatusOK, WithDestination(&gateway)); err != nil {
		span.SetStatus(codes.Error, "gateway unresolved")
		return fmt.Errorf("resolving gateway: %w", err)
	}
	if gateway.URL == "" {
		return errors.New("resolving gateway: empty url")
	}

	c.mu.Lock()
	c.selfUser = &self
	c.gatewayURL = gateway.URL
	c.mu.Unlock()

	c.logger.Info("logged in", "user", self.Username, "account", c.accountType.String())

	return nil
}

// Request instantiates an *http.Request with the provided information.
// Content-Type defaults to `application/json` if unspecified via WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return nil, err
		}
	}

	var payload bytes.Buffer
	if settings.body != nil {
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), &payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	var contentType string
	if settings.contentType == nil {
		contentType = "application/json"
	} else {
		contentType = *settings.contentType
	}

	req.Header.Set("Content-Type", contentType)
	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	if settings.reason != "" {
		req.Header.Set("X-Audit-Log-Reason", url.PathEscape(settings.reason))
	}

	return req, nil
}

// URL creates a url.URL for use in Request.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	return &url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     path,
		RawQuery: encodeQuery(settings.queryStrings),
	}
}

func encodeQuery(kv map[string]string) string {
	if kv == nil {
		return ""
	}

	queryParams := url.Values{}
	for k, v := range kv {
		queryParams.Add(k, v)
	}

	return queryParams.Encode()
}
