package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmehdipour/reminder-dispatch/internal/util"
	"github.com/jonboulle/clockwork"
)

type HTTPOpts struct {
	Name          string
	BaseURL       string
	Path          string
	APIKey        string // sent as Bearer token when set
	TimeoutMs     int
	MaxBatch      int
	FailThreshold int
	OpenForMs     int
	Clock         clockwork.Clock
}

// HTTPProvider posts multicasts to a JSON push gateway. The gateway answers
// 2xx with {"success_count":N,"failure_count":M}.
type HTTPProvider struct {
	name     string
	url      string
	apiKey   string
	maxBatch int
	client   *http.Client
	br       *Breaker
}

func NewHTTPProvider(o HTTPOpts) *HTTPProvider {
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 3000
	}
	if o.OpenForMs <= 0 {
		o.OpenForMs = 15000
	}
	if o.MaxBatch <= 0 {
		o.MaxBatch = DefaultMaxBatch
	}
	return &HTTPProvider{
		name:     o.Name,
		url:      o.BaseURL + o.Path,
		apiKey:   o.APIKey,
		maxBatch: o.MaxBatch,
		client:   &http.Client{Timeout: time.Duration(o.TimeoutMs) * time.Millisecond},
		br:       NewBreaker(o.Clock, o.FailThreshold, time.Duration(o.OpenForMs)*time.Millisecond),
	}
}

func (p *HTTPProvider) Name() string  { return p.name }
func (p *HTTPProvider) Ready() bool   { return p.br.Ready() }
func (p *HTTPProvider) Acquire() bool { return p.br.TryAcquire() }

// SendMulticast posts one request per chunk of tokens. A failed chunk counts
// all its tokens as failures; the call only errors when every chunk failed.
func (p *HTTPProvider) SendMulticast(ctx context.Context, msg Message) (BatchResult, error) {
	res, err := sendChunked(ctx, msg, p.maxBatch, p.post)
	if err != nil {
		p.br.OnFailure()
		return BatchResult{}, err
	}
	p.br.OnSuccess()
	return res, nil
}

func (p *HTTPProvider) post(ctx context.Context, msg Message) (BatchResult, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return BatchResult{}, fmt.Errorf("marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(b))
	if err != nil {
		return BatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return BatchResult{}, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return BatchResult{}, fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}

	var out BatchResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return BatchResult{}, fmt.Errorf("provider=%s decode response: %w", p.name, err)
	}
	return out, nil
}

type sendFunc func(ctx context.Context, msg Message) (BatchResult, error)

func sendChunked(ctx context.Context, msg Message, size int, send sendFunc) (BatchResult, error) {
	chunks := util.Chunk(msg.Tokens, size)
	if len(chunks) == 0 {
		return BatchResult{}, fmt.Errorf("multicast without tokens")
	}

	var (
		total  BatchResult
		failed int
		last   error
	)
	for _, tokens := range chunks {
		part := msg
		part.Tokens = tokens
		res, err := send(ctx, part)
		if err != nil {
			failed++
			last = err
			total.FailureCount += len(tokens)
			continue
		}
		total = total.add(res)
	}
	if failed == len(chunks) {
		return BatchResult{}, last
	}
	return total, nil
}
