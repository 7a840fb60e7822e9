package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrDecode is returned when a successful response body does not match
	// the value passed to SetResult.
	ErrDecode = errors.New("httpclient: decode response")
	// ErrStatus is returned by ExpectSuccess when no wrapper is given.
	ErrStatus = errors.New("httpclient: unexpected status")
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 4 << 20

// Request builds and executes a single HTTP call.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response is the status and the fully read body.
type Response struct {
	StatusCode int
	Header     http.Header
	body       []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

type requestBuilder struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	tracer         trace.Tracer
	baseURL        string
	headers        map[string]string
	queryParams    url.Values
	body           any
	result         any
	errorHandler   ResponseErrorHandler
	attrs          []attribute.KeyValue
}

func (r *requestBuilder) Get(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, path)
}

func (r *requestBuilder) Post(ctx context.Context, path string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, path)
}

// SetBody sets the request body. Anything other than []byte, string or
// io.Reader is JSON encoded.
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	r.queryParams.Set(key, value)
	return r
}

// SetResult sets the target for JSON decoding of a 2xx body.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	ctx, span := r.tracer.Start(ctx, "http.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		}, r.attrs...)...),
	)
	defer span.End()

	fail := func(err error, msg string) (*Response, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		r.count(ctx, false)
		return nil, err
	}

	bodyReader, err := r.encodeBody()
	if err != nil {
		return fail(err, "encode body")
	}

	req, err := http.NewRequestWithContext(ctx, method, r.resolve(path), bodyReader)
	if err != nil {
		return fail(fmt.Errorf("create request: %w", err), "create request")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			span.SetAttributes(attribute.Bool("context.cancelled", true))
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			span.SetAttributes(attribute.Bool("request.timeout", true))
		}
		return fail(err, "transport")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("read response body: %w", err), "read body")
	}

	response := &Response{StatusCode: resp.StatusCode, Header: resp.Header, body: body}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if r.errorHandler != nil {
		if err := r.errorHandler(resp.StatusCode, body); err != nil {
			span.SetStatus(codes.Error, err.Error())
			r.count(ctx, false)
			return response, err
		}
	}

	if r.result != nil && response.IsSuccess() {
		if err := json.Unmarshal(body, r.result); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode response")
			r.count(ctx, false)
			return response, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	r.count(ctx, response.IsSuccess())
	return response, nil
}

func (r *requestBuilder) resolve(path string) string {
	full := path
	if r.baseURL != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = strings.TrimSuffix(r.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.queryParams) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + r.queryParams.Encode()
	}
	return full
}

func (r *requestBuilder) encodeBody() (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(data), nil
	}
}

func (r *requestBuilder) count(ctx context.Context, success bool) {
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, r.attrs...)
	r.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
