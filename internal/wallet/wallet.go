package wallet

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrNotConnected   = errors.New("wallet not connected")
)

var (
	friendlyAddress = regexp.MustCompile(`^[A-Za-z0-9_\-+/]{48}$`)
	rawAddress      = regexp.MustCompile(`^-?[0-9]+:[0-9a-fA-F]{64}$`)
)

// ValidAddress accepts the user-friendly (48 char base64) and raw
// (workchain:hex) address forms.
func ValidAddress(address string) bool {
	return friendlyAddress.MatchString(address) || rawAddress.MatchString(address)
}

// Stub is a transfer service that accepts every well-formed request after a
// fixed delay. It stands in for the on-chain integration.
type Stub struct {
	Delay time.Duration
	Log   logrus.FieldLogger

	mu      sync.Mutex
	address string
}

func NewStub(delay time.Duration, log logrus.FieldLogger) *Stub {
	return &Stub{Delay: delay, Log: log}
}

func (s *Stub) Connect(ctx context.Context, address string) error {
	if !ValidAddress(address) {
		return ErrInvalidAddress
	}
	s.mu.Lock()
	s.address = address
	s.mu.Unlock()
	s.Log.WithField("address", address).Info("wallet connected")
	return nil
}

func (s *Stub) Deposit(ctx context.Context, amount int64) error {
	return s.transfer(ctx, "deposit", amount)
}

func (s *Stub) Withdraw(ctx context.Context, amount int64) error {
	return s.transfer(ctx, "withdraw", amount)
}

func (s *Stub) transfer(ctx context.Context, kind string, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	address := s.address
	s.mu.Unlock()
	if address == "" {
		return ErrNotConnected
	}

	entry := s.Log.WithFields(logrus.Fields{
		"transfer": uuid.NewString(),
		"kind":     kind,
		"amount":   amount,
	})
	entry.Debug("transfer submitted")

	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		entry.WithError(ctx.Err()).Warn("transfer abandoned")
		return ctx.Err()
	case <-timer.C:
	}
	entry.Info("transfer confirmed")
	return nil
}
