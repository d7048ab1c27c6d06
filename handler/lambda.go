package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Handle adapts an API Gateway proxy event onto the router.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := requestFromEvent(ctx, event)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	rec := newBufferedWriter()
	h.ServeHTTP(rec, req)
	return rec.response(), nil
}

func requestFromEvent(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("handler: decode base64 body: %w", err)
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: queryFromEvent(event).Encode()}

	req, err := http.NewRequestWithContext(ctx, event.HTTPMethod, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("handler: build request: %w", err)
	}
	for k, vs := range event.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	req.RequestURI = u.RequestURI()
	req.RemoteAddr = event.RequestContext.Identity.SourceIP
	return req, nil
}

func queryFromEvent(event events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range event.QueryStringParameters {
		if !q.Has(k) {
			q.Set(k, v)
		}
	}
	return q
}

// bufferedWriter collects a response for API Gateway.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: http.Header{}}
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) response() events.APIGatewayProxyResponse {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	resp := events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           make(map[string]string, len(b.header)),
		MultiValueHeaders: make(map[string][]string, len(b.header)),
	}
	for k, vs := range b.header {
		if len(vs) == 0 {
			continue
		}
		resp.Headers[k] = vs[0]
		resp.MultiValueHeaders[k] = vs
	}

	ct := b.header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "text/") {
		resp.Body = b.body.String()
		return resp
	}
	resp.Body = base64.StdEncoding.EncodeToString(b.body.Bytes())
	resp.IsBase64Encoded = true
	return resp
}
