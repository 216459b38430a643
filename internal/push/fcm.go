package push

import (
	"context"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/jonboulle/clockwork"
)

// Multicaster is the slice of *messaging.Client the FCM provider needs.
type Multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMOpts struct {
	Name          string
	MaxBatch      int
	FailThreshold int
	OpenForMs     int
	Clock         clockwork.Clock
}

// FCMProvider sends through Firebase Cloud Messaging.
type FCMProvider struct {
	name     string
	client   Multicaster
	maxBatch int
	br       *Breaker
}

func NewFCMProvider(client Multicaster, o FCMOpts) *FCMProvider {
	if o.Name == "" {
		o.Name = "fcm"
	}
	if o.MaxBatch <= 0 || o.MaxBatch > DefaultMaxBatch {
		o.MaxBatch = DefaultMaxBatch
	}
	if o.OpenForMs <= 0 {
		o.OpenForMs = 15000
	}
	return &FCMProvider{
		name:     o.Name,
		client:   client,
		maxBatch: o.MaxBatch,
		br:       NewBreaker(o.Clock, o.FailThreshold, time.Duration(o.OpenForMs)*time.Millisecond),
	}
}

func (p *FCMProvider) Name() string  { return p.name }
func (p *FCMProvider) Ready() bool   { return p.br.Ready() }
func (p *FCMProvider) Acquire() bool { return p.br.TryAcquire() }

func (p *FCMProvider) SendMulticast(ctx context.Context, msg Message) (BatchResult, error) {
	res, err := sendChunked(ctx, msg, p.maxBatch, p.send)
	if err != nil {
		p.br.OnFailure()
		return BatchResult{}, err
	}
	p.br.OnSuccess()
	return res, nil
}

func (p *FCMProvider) send(ctx context.Context, msg Message) (BatchResult, error) {
	resp, err := p.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: msg.Tokens,
		Data:   msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
	})
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{SuccessCount: resp.SuccessCount, FailureCount: resp.FailureCount}, nil
}
