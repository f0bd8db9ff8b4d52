// Package deploy asks the external orchestration service to start an
// endpoint's container.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meshmeta/internal/gateway/entity"
)

var ErrDeployFailed = errors.New("deploy failed")

type Request struct {
	EndpointID string            `json:"endpoint_id"`
	Image      string            `json:"image"`
	Resources  entity.Resources  `json:"resources"`
	Env        map[string]string `json:"env"`
}

// RequestFor builds the deploy request for a stored endpoint.
func RequestFor(e *entity.Endpoint) Request {
	req := Request{
		EndpointID: e.EndpointID,
		Image:      e.Image,
		Resources:  e.Resources,
		Env:        map[string]string{},
	}
	if e.Deployment != nil {
		for k, v := range e.Deployment.Env {
			req.Env[k] = v
		}
	}
	return req
}

type Deployer interface {
	Deploy(ctx context.Context, req Request) error
}

// Noop accepts every request. It stands in when no orchestrator is configured.
type Noop struct{}

func (Noop) Deploy(context.Context, Request) error { return nil }

type HTTPDeployer struct {
	baseURL string
	http    *http.Client
}

func NewHTTPDeployer(baseURL string, timeout time.Duration) *HTTPDeployer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDeployer{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// New returns an HTTPDeployer for baseURL, or Noop when it is empty.
func New(baseURL string, timeout time.Duration) Deployer {
	if strings.TrimSpace(baseURL) == "" {
		return Noop{}
	}
	return NewHTTPDeployer(baseURL, timeout)
}

func (d *HTTPDeployer) Deploy(ctx context.Context, in Request) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode deploy request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/deploy", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: endpoint %q: %v", ErrDeployFailed, in.EndpointID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: endpoint %q: unexpected status %s: %s",
			ErrDeployFailed, in.EndpointID, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
