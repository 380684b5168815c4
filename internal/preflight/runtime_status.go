package preflight

import (
	"context"
	"strings"

	"histoflow/internal/config"
)

// CheckRedisFromConfig evaluates event mirror status from config and connectivity.
func CheckRedisFromConfig(cfg *config.Config) Result {
	const name = "Redis event mirror"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Events.RedisAddr) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	check := CheckRedis(context.Background(), cfg.Events.RedisAddr)
	if check.Passed {
		return Result{Name: name, Passed: true, Detail: check.Detail}
	}
	return Result{Name: name, Detail: check.Detail}
}

// CheckNotificationsFromConfig reports whether ntfy notifications are configured.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy configured"}
}
