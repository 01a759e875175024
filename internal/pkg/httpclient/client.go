// internal/pkg/httpclient/client.go

package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ServiceResolver 把服务名解析成 base URL（如 http://10.0.0.3:8086）
type ServiceResolver interface {
	ResolveBaseURL(serviceName string) (string, error)
}

// StaticResolver 使用配置里写死的地址
type StaticResolver map[string]string

func (s StaticResolver) ResolveBaseURL(serviceName string) (string, error) {
	u, ok := s[serviceName]
	if !ok || u == "" {
		return "", errors.Errorf("no address configured for service '%s'", serviceName)
	}
	return strings.TrimRight(u, "/"), nil
}

// FallbackResolver 先尝试 Primary（通常是 Nacos），失败时回退到 Fallback
type FallbackResolver struct {
	Primary  ServiceResolver
	Fallback ServiceResolver
}

func (f FallbackResolver) ResolveBaseURL(serviceName string) (string, error) {
	if f.Primary != nil {
		if u, err := f.Primary.ResolveBaseURL(serviceName); err == nil {
			return u, nil
		}
	}
	return f.Fallback.ResolveBaseURL(serviceName)
}

// StatusError 表示下游返回了非 2xx 状态码
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service %s returned status %d: %s", e.Service, e.Code, e.Body)
}

// Client 是一个可追踪的、可注入的HTTP客户端
type Client struct {
	Tracer     trace.Tracer
	HTTPClient *http.Client
	Resolver   ServiceResolver
}

// NewClient 创建一个新的客户端实例
func NewClient(tracer trace.Tracer, resolver ServiceResolver) *Client {
	// 默认不设置 Timeout，请求受控于传入的 context；需要整体上限时由调用方设置
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
		},
	}
	return &Client{
		Tracer:     tracer,
		HTTPClient: httpClient,
		Resolver:   resolver,
	}
}

// GetJSON 以 GET 调用 serviceName 的 path，并把 JSON 响应解码到 out
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, serviceName, path, query, nil, out)
}

// PostJSON 以 POST 发送 JSON body，并把 JSON 响应解码到 out（out 可为 nil）
func (c *Client) PostJSON(ctx context.Context, serviceName, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, serviceName, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, serviceName, path string, query url.Values, body, out any) error {
	ctx, span := c.Tracer.Start(ctx, "call-"+serviceName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	baseURL, err := c.Resolver.ResolveBaseURL(serviceName)
	if err != nil {
		return fail(err)
	}
	target := baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(errors.Wrap(err, "encode request body"))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fail(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	span.SetAttributes(
		attribute.String("http.url", target),
		attribute.String("http.method", method),
		attribute.String("peer.service", serviceName),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fail(&StatusError{Service: serviceName, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(errors.Wrap(err, "decode response body"))
	}
	return nil
}
