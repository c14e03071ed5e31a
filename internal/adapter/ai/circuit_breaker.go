// Package ai holds provider independent decorators for domain.ChatClient.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
)

// ErrCircuitOpen is returned without calling the provider while the circuit is open.
var ErrCircuitOpen = fmt.Errorf("%w: circuit open", domain.ErrUpstreamRateLimit)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the recovery timeout elapses.
	CircuitOpen
	// CircuitHalfOpen lets a single probe through.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker wraps a ChatClient and rejects calls after consecutive
// failures until a half-open probe succeeds.
type CircuitBreaker struct {
	next             domain.ChatClient
	failureThreshold int
	recoveryTimeout  time.Duration
	now              func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	lastFailureTime time.Time
	probing         bool
}

// NewCircuitBreaker opens after threshold consecutive failures and probes
// again after recovery.
func NewCircuitBreaker(next domain.ChatClient, threshold int, recovery time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if recovery <= 0 {
		recovery = 30 * time.Second
	}
	return &CircuitBreaker{
		next:             next,
		failureThreshold: threshold,
		recoveryTimeout:  recovery,
		now:              time.Now,
		state:            CircuitClosed,
	}
}

// Provider implements domain.ChatClient.
func (cb *CircuitBreaker) Provider() string { return cb.next.Provider() }

// ChatJSON implements domain.ChatClient.
func (cb *CircuitBreaker) ChatJSON(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if !cb.acquire() {
		return domain.ChatResponse{}, ErrCircuitOpen
	}
	resp, err := cb.next.ChatJSON(ctx, req)
	// Caller cancellation is not counted as a provider failure.
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		cb.release()
		return resp, err
	}
	if err != nil {
		cb.recordFailure()
		return resp, err
	}
	cb.recordSuccess()
	return resp, nil
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) acquire() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.recoveryTimeout {
			return false
		}
		cb.state = CircuitHalfOpen
		cb.probing = true
		return true
	default:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		cb.state = CircuitClosed
		slog.Info("ai circuit breaker closed after successful probe", slog.String("provider", cb.next.Provider()))
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailureTime = cb.now()
	cb.probing = false
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("ai circuit breaker opened",
				slog.String("provider", cb.next.Provider()),
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.state = CircuitOpen
	}
}
