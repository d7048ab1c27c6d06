// Package paramstore reads secrets from AWS SSM Parameter Store.
package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Client resolves parameter names under an optional path prefix.
type Client struct {
	api    ssmAPI
	prefix string
}

type Option func(*Client)

// WithPrefix scopes relative parameter names under prefix, e.g.
// "/room-designer" turns "open-ai-token" into "/room-designer/open-ai-token".
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	}
}

func New(api ssmAPI, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	c := &Client{api: api}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the fully qualified parameter name. Absolute names pass through.
func (c *Client) Name(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "/") || c.prefix == "" {
		return name
	}
	return c.prefix + "/" + name
}

// GetParameter returns the decrypted value of name.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	full := c.Name(name)
	if full == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(full),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", full, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", full)
	}
	return *out.Parameter.Value, nil
}

// GetField reads name as a JSON object and returns its string field. Secrets
// are stored as {"token":"..."} so rotation can add fields later.
func (c *Client) GetField(ctx context.Context, name, field string) (string, error) {
	raw, err := c.GetParameter(ctx, name)
	if err != nil {
		return "", err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal %q as JSON: %w", c.Name(name), err)
	}
	v, ok := obj[field].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("paramstore: field %q of %q is empty", field, c.Name(name))
	}
	return v, nil
}
