package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBench(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateSimulation(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBench() error {
	if len(c.Bench.Protocols) == 0 {
		return errors.New("bench.protocols must include at least one protocol")
	}
	if c.Bench.MaxWashLoops < 0 {
		return errors.New("bench.max_wash_loops must be >= 0")
	}
	if err := ensurePositiveMap(map[string]int{
		"bench.pickup_slot":  c.Bench.PickupSlot,
		"bench.handler_slot": c.Bench.HandlerSlot,
		"bench.dropoff_slot": c.Bench.DropoffSlot,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateSimulation() error {
	if c.Simulation.PassRate < 0 || c.Simulation.PassRate > 1 {
		return errors.New("simulation.pass_rate must be between 0 and 1")
	}
	if c.Simulation.StepDelayMS < 0 {
		return errors.New("simulation.step_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if strings.TrimSpace(c.Events.RedisAddr) != "" && strings.TrimSpace(c.Events.RedisStream) == "" {
		return errors.New("events.redis_stream must be set when events.redis_addr is configured")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
