package udeploy

import (
	"context"
	"time"

	"github.com/cenk/backoff"
	"github.com/pkg/errors"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

const breakerTripThreshold = 5

// BreakerClient guards the gateway with a circuit breaker so that a dead
// deployment tool fails the remaining components fast instead of burning a
// full retry schedule on each of them.
type BreakerClient struct {
	client  *Client
	breaker *circuit.Breaker
}

func NewBreakerClient(client *Client) *BreakerClient {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	options := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(breakerTripThreshold),
	}

	return &BreakerClient{
		client:  client,
		breaker: circuit.NewBreakerWithOptions(options),
	}
}

func (b *BreakerClient) DownloadArtifacts(ctx context.Context, spec model.ComponentSpec, destDir string) (string, error) {
	if !b.breaker.Ready() {
		return "", errors.Wrapf(ErrUnavailable, "circuit breaker open, skipping download for %v", spec)
	}
	var bundlePath string
	err := b.breaker.Call(func() error {
		var callErr error
		bundlePath, callErr = b.client.DownloadArtifacts(ctx, spec, destDir)
		return callErr
	}, 0)
	if err != nil {
		return "", err
	}
	return bundlePath, nil
}

func (b *BreakerClient) VersionProperties(ctx context.Context, spec model.ComponentSpec) (model.VersionProperties, error) {
	if !b.breaker.Ready() {
		return nil, errors.Wrapf(ErrUnavailable, "circuit breaker open, skipping properties for %v", spec)
	}
	var properties model.VersionProperties
	err := b.breaker.Call(func() error {
		var callErr error
		properties, callErr = b.client.VersionProperties(ctx, spec)
		return callErr
	}, 0)
	if err != nil {
		return nil, err
	}
	return properties, nil
}

// Tripped reports whether the breaker is currently open.
func (b *BreakerClient) Tripped() bool {
	return b.breaker.Tripped()
}
