package sim

import (
	"context"
	"errors"
	"sync"

	"histoflow/internal/devices"
	"histoflow/internal/events"
)

var errNoActiveProtocol = errors.New("no active protocol set")

// Stainer simulates the liquid handler. The active protocol is deck-wide
// state: it must be set before the first stain and persists until replaced.
type Stainer struct {
	base

	mu     sync.Mutex
	active devices.Protocol
}

var _ devices.LiquidHandler = (*Stainer)(nil)

func (s *Stainer) SetActiveProtocol(ctx context.Context, protocol devices.Protocol) error {
	if err := s.step(ctx, events.StainerProtocolSet, events.Payload{"protocol": string(protocol)}); err != nil {
		return err
	}
	s.mu.Lock()
	s.active = protocol
	s.mu.Unlock()
	return nil
}

func (s *Stainer) Stain(ctx context.Context, slideID int64, slot int) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == "" {
		return devices.NewFault(devices.StationLiquidHandler, "stain", errNoActiveProtocol)
	}
	return s.step(ctx, events.StainerStain, events.Payload{
		"slide":    slideID,
		"slot":     slot,
		"protocol": string(active),
	})
}

func (s *Stainer) Wash(ctx context.Context, slideID int64, slot int) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	return s.step(ctx, events.StainerWash, events.Payload{
		"slide":    slideID,
		"slot":     slot,
		"protocol": string(active),
	})
}

// ActiveProtocol returns the protocol currently loaded on the deck.
func (s *Stainer) ActiveProtocol() devices.Protocol {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
