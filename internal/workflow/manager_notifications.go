package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"histoflow/internal/devices"
	"histoflow/internal/events"
	"histoflow/internal/ledger"
	"histoflow/internal/logging"
	"histoflow/internal/notifications"
)

// notificationBridge sits in the run's event fan-out and converts slide
// dispositions into push notifications as they happen.
type notificationBridge struct {
	manager *Manager
}

func (b *notificationBridge) Record(ctx context.Context, name string, payload events.Payload) error {
	switch name {
	case events.SlideComplete:
		b.manager.notifySlideAccepted(ctx, payload)
	case events.SlideFailed:
		reason, _ := payload["reason"].(string)
		switch reason {
		case ledger.ReasonMaxWashLoopsExceeded:
			b.manager.notifySlideRejected(ctx, payload)
		case ledger.ReasonDeviceFault:
			b.manager.notifyDeviceFault(ctx, payload)
		}
	}
	return nil
}

func (m *Manager) notifyRunStarted(ctx context.Context, plan RunPlan) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventRunStarted, notifications.Payload{
		"slides":    len(plan.SlideIDs),
		"protocols": len(plan.Protocols),
	}); err != nil {
		// Check if this is a context cancellation (normal shutdown)
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send run start notification")
		} else {
			m.logger.Debug("run start notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyRunCompleted(ctx context.Context, result *RunResult, duration time.Duration) {
	if m.notifier == nil {
		return
	}
	payload := notifications.Payload{"duration": duration}
	if result != nil {
		payload["accepted"] = result.Accepted
		payload["rejected"] = result.Rejected
		payload["failed"] = result.Failed
	}
	if err := m.notifier.Publish(ctx, notifications.EventRunCompleted, payload); err != nil {
		// Check if this is a context cancellation (normal shutdown)
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send run completion notification")
		} else {
			m.logger.Debug("run completion notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyRunFailed(ctx context.Context, runErr error) {
	if m.notifier == nil || runErr == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventRunFailed, notifications.Payload{
		"error": runErr.Error(),
	}); err != nil {
		// Check if this is a context cancellation (normal shutdown)
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send run failure notification")
		} else {
			m.logger.Debug("run failure notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifySlideAccepted(ctx context.Context, payload events.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventSlideAccepted, notifications.Payload{
		"slide": payload["slide"],
		"loops": payload["loops"],
		"score": qualityScore(payload["analysis"]),
	}); err != nil {
		// Check if this is a context cancellation (normal shutdown)
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send slide accepted notification")
		} else {
			m.logger.Debug("slide accepted notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifySlideRejected(ctx context.Context, payload events.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventSlideRejected, notifications.Payload{
		"slide": payload["slide"],
		"loops": payload["loops"],
	}); err != nil {
		// Check if this is a context cancellation (normal shutdown)
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send slide rejected notification")
		} else {
			m.logger.Debug("slide rejected notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) notifyDeviceFault(ctx context.Context, payload events.Payload) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{
		"context": fmt.Sprintf("slide %v", payload["slide"]),
		"error":   "device fault during pass",
	}); err != nil {
		// Check if this is a context cancellation (normal shutdown)
		if errors.Is(err, context.Canceled) {
			m.logger.Debug("daemon shutting down, could not send device fault notification")
		} else {
			m.logger.Debug("device fault notification failed", logging.Error(err))
		}
	}
}

func qualityScore(value any) float64 {
	switch v := value.(type) {
	case devices.Report:
		return v.QualityScore
	case *devices.Report:
		if v != nil {
			return v.QualityScore
		}
	}
	return 0
}
