// Package payment sends mobile-money STK push requests to the payment
// provider endpoint.
package payment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/CharityMuthoka/c-braids-beauty-shop/internal/domain/checkout"
)

const maxErrorBody = 512

var _ checkout.PaymentInitiator = (*Client)(nil)

// StatusError is returned when the provider answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment provider returned %d", e.Code)
	}
	return fmt.Sprintf("payment provider returned %d: %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status code.
func (e *StatusError) StatusCode() int { return e.Code }

// Options configures a Client.
type Options struct {
	URL            string
	Timeout        time.Duration
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client posts payment prompts to a single provider URL.
type Client struct {
	url  string
	http *http.Client
}

// New creates a Client. The transport is instrumented with otelhttp when
// providers are set.
func New(opts Options) *Client {
	var otelOpts []otelhttp.Option
	if opts.TracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	if opts.MeterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
	}
	return &Client{
		url: opts.URL,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelOpts...),
		},
	}
}

// Initiate sends {"phone","amount","orderId"} to the provider. Any 2xx
// response is success.
func (c *Client) Initiate(ctx context.Context, req checkout.PaymentRequest) error {
	body := encodeRequest(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Message: errorMessage(raw)}
}

func encodeRequest(req checkout.PaymentRequest) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("phone")
	e.Str(req.Phone)
	e.FieldStart("amount")
	e.Int64(req.Amount)
	e.FieldStart("orderId")
	e.Str(req.OrderID)
	e.ObjEnd()

	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out
}

// errorMessage extracts "error" or "message" from a JSON error body, falling
// back to the raw (truncated) body.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	var msg string
	d := jx.DecodeBytes(raw)
	if d.Next() == jx.Object {
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if (key == "error" || key == "message") && msg == "" && d.Next() == jx.String {
				s, err := d.Str()
				if err != nil {
					return err
				}
				msg = s
				return nil
			}
			return d.Skip()
		})
		if err == nil && msg != "" {
			return msg
		}
	}
	return string(raw)
}
