package repository

import (
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"

	"github.com/matzehuels/moxie/pkg/errors"
)

// breakerThreshold is the number of consecutive transport failures that
// open a host's breaker.
const breakerThreshold = 5

// breakers holds one circuit breaker per repository host. Not-found answers
// are successes as far as the breaker is concerned.
type breakers struct {
	mu  sync.RWMutex
	all map[string]*circuit.Breaker
}

func newBreakers() *breakers {
	return &breakers{all: make(map[string]*circuit.Breaker)}
}

func (b *breakers) get(host string) *circuit.Breaker {
	b.mu.RLock()
	br, ok := b.all[host]
	b.mu.RUnlock()
	if ok {
		return br
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if br, ok := b.all[host]; ok {
		return br
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	br = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(breakerThreshold),
	})
	b.all[host] = br
	return br
}

// call runs fn under the breaker for rawURL's host.
func (b *breakers) call(rawURL string, fn func() error) error {
	host := hostOf(rawURL)
	br := b.get(host)
	if !br.Ready() {
		return errors.New(errors.ErrCodeCircuitOpen, "circuit breaker open for %s", host)
	}

	// answers from a healthy host must not trip the breaker
	var answer error
	err := br.Call(func() error {
		err := fn()
		if errors.IsNotFound(err) || errors.IsFatal(err) || isHeadRefused(err) {
			answer = err
			return nil
		}
		return err
	}, 0)
	if answer != nil {
		return answer
	}
	return err
}

// state reports "open" or "closed" per host.
func (b *breakers) state() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	states := make(map[string]string, len(b.all))
	for host, br := range b.all {
		if br.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
