package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/samber/do"
)

// Bodies of error responses are truncated to this many bytes.
const maxErrorBody = 2048

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

type response struct {
	status int
	body   []byte
}

func (r response) text() string {
	body := r.body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(string(body))
}

// InferenceGenerator requests images from a Hugging Face style
// text-to-image router. It keeps no state between calls.
type InferenceGenerator struct {
	client   *http.Client
	endpoint Endpoint
	primary  string
	fallback string
}

func NewInferenceGenerator(endpoint Endpoint, client *http.Client) (*InferenceGenerator, error) {
	endpoint = endpoint.withDefaults()
	if err := endpoint.Validate(); err != nil {
		return nil, err
	}
	primary, fallback, err := endpoint.URLs()
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &InferenceGenerator{
		client:   client,
		endpoint: endpoint,
		primary:  primary,
		fallback: fallback,
	}, nil
}

func NewGenerator(i *do.Injector) (Generator, error) {
	return NewInferenceGenerator(do.MustInvoke[Endpoint](i), do.MustInvoke[*http.Client](i))
}

func (g *InferenceGenerator) Generate(ctx context.Context, prompt string) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("inference").With("model", g.endpoint.Model)
	if strings.TrimSpace(prompt) == "" {
		return nil, &Failure{Kind: KindConfiguration, Err: ErrEmptyPrompt}
	}
	log.Info("requesting image", "url", g.primary, "prompt", prompt)

	body, err := json.Marshal(inferenceRequest{Inputs: prompt})
	if err != nil {
		return nil, err
	}

	var (
		data     []byte
		attempts int
	)
	operation := func() error {
		attempts++
		resp, err := g.post(ctx, g.primary, body)
		if err != nil {
			return &Failure{Kind: KindTransport, Err: err}
		}

		switch resp.status {
		case http.StatusOK:
			if len(resp.body) == 0 {
				return backoff.Permanent(&Failure{Kind: KindEmptyPayload, Status: resp.status})
			}
			data = resp.body
			return nil
		case http.StatusServiceUnavailable:
			return &Failure{Kind: KindServiceUnavailable, Status: resp.status, Body: resp.text()}
		case http.StatusNotFound:
			if g.fallback != "" {
				attempts++
			}
			if data, err = g.tryFallback(ctx, body, resp); err != nil {
				return backoff.Permanent(err)
			}
			return nil
		case http.StatusGone:
			return backoff.Permanent(&Failure{Kind: KindEndpointRemoved, Status: resp.status, Body: resp.text()})
		default:
			return backoff.Permanent(&Failure{Kind: KindRemote, Status: resp.status, Body: resp.text()})
		}
	}
	notify := func(err error, next time.Duration) {
		log.Warn("retrying image request", "attempt", attempts, "backoff", next, "error", err)
	}

	err = backoff.RetryNotify(operation, g.backOff(ctx), notify)
	if err != nil {
		var failure *Failure
		if !errors.As(err, &failure) {
			failure = &Failure{Kind: KindTransport, Err: err}
		}
		failure.Attempts = attempts
		log.Error("image request failed", "kind", failure.Kind, "status", failure.Status, "attempts", attempts)
		return nil, failure
	}

	log.Info("received image", "bytes", len(data), "attempts", attempts)
	return data, nil
}

// tryFallback makes the single request allowed after the primary route 404s.
func (g *InferenceGenerator) tryFallback(ctx context.Context, body []byte, primary response) ([]byte, error) {
	if g.fallback == "" {
		return nil, &Failure{Kind: KindRouteNotFound, Status: primary.status, Body: primary.text()}
	}
	log.FromContextOrDiscard(ctx).WithGroup("inference").Warn("primary route not found, trying fallback", "url", g.fallback)

	resp, err := g.post(ctx, g.fallback, body)
	if err != nil {
		return nil, &Failure{Kind: KindRouteNotFound, Status: primary.status, Err: err}
	}
	if resp.status != http.StatusOK {
		return nil, &Failure{Kind: KindRouteNotFound, Status: resp.status, Body: resp.text()}
	}
	if len(resp.body) == 0 {
		return nil, &Failure{Kind: KindEmptyPayload, Status: resp.status}
	}
	return resp.body, nil
}

func (g *InferenceGenerator) post(ctx context.Context, url string, body []byte) (response, error) {
	ctx, cancel := context.WithTimeout(ctx, g.endpoint.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Authorization", "Bearer "+g.endpoint.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	if g.endpoint.NoCache {
		req.Header.Set("x-use-cache", "false")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, err
	}
	return response{status: resp.StatusCode, body: data}, nil
}

func (g *InferenceGenerator) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.endpoint.Backoff
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = g.endpoint.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.endpoint.MaxAttempts-1)), ctx)
}
