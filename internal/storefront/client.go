// Package storefront talks to the external storefront REST API.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/shape"
)

// Client wraps a resty client bound to the storefront base URL.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// FileUpload is a single multipart file part.
type FileUpload struct {
	Field       string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// RequestOpts captures inputs for a storefront API call.
type RequestOpts struct {
	Method  string
	Path    string
	Query   map[string]string
	Body    any
	Headers map[string]string
	Token   string
	File    *FileUpload
}

// Response bundles the HTTP response metadata.
type Response struct {
	Status int
	Body   []byte
	Header http.Header
}

// New builds a client for baseURL.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: client, log: log.Named("storefront")}
}

// Do performs a request. Transport failures wrap ErrTransport; non-2xx replies and
// bodies carrying success:false come back as *APIError.
func (c *Client) Do(ctx context.Context, opts RequestOpts) (*Response, error) {
	if opts.Method == "" {
		return nil, errors.New("request method is required")
	}
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("request path is required")
	}

	req := c.http.R().SetContext(ctx)

	if opts.Token != "" {
		req.SetAuthToken(opts.Token)
	}
	if len(opts.Query) > 0 {
		req.SetQueryParams(opts.Query)
	}
	if len(opts.Headers) > 0 {
		req.SetHeaders(opts.Headers)
	}

	switch {
	case opts.File != nil:
		req.SetMultipartField(opts.File.Field, opts.File.FileName, opts.File.ContentType, opts.File.Reader)
	case opts.Body != nil:
		req.SetHeader("Content-Type", "application/json").SetBody(opts.Body)
	}

	started := time.Now()
	resp, err := req.Execute(opts.Method, opts.Path)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", opts.Method),
			zap.String("path", opts.Path),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, opts.Method, opts.Path, err)
	}

	out := &Response{
		Status: resp.StatusCode(),
		Body:   resp.Body(),
		Header: resp.Header().Clone(),
	}

	c.log.Debug("request completed",
		zap.String("method", opts.Method),
		zap.String("path", opts.Path),
		zap.Int("status", out.Status),
		zap.Duration("elapsed", time.Since(started)),
	)

	if out.Status < 200 || out.Status >= 300 || reportsFailure(out.Body) {
		return out, newAPIError(out.Status, out.Body)
	}

	return out, nil
}

// JSON decodes the response body, keeping numbers exact.
func (r *Response) JSON() (any, error) {
	v, err := shape.Decode(r.Body)
	if err != nil {
		return nil, fmt.Errorf("decode storefront response: %w", err)
	}
	return v, nil
}

func reportsFailure(body []byte) bool {
	payload, err := shape.Decode(body)
	if err != nil {
		return false
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return false
	}
	success, ok := obj["success"].(bool)
	return ok && !success
}

func (c *Client) doJSON(ctx context.Context, opts RequestOpts) (any, error) {
	resp, err := c.Do(ctx, opts)
	if err != nil {
		return nil, err
	}
	return resp.JSON()
}
