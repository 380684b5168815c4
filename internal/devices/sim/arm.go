package sim

import (
	"context"
	"fmt"

	"histoflow/internal/devices"
	"histoflow/internal/events"
)

// Arm simulates the robot arm. Every transfer runs the full gripper
// choreography; picking up from the rack additionally homes the arm and
// positions over the pickup slot first.
type Arm struct {
	base
}

var _ devices.Mover = (*Arm)(nil)

func (a *Arm) MoveBetween(ctx context.Context, from, to devices.Station, slideID int64, slot int) error {
	if !from.Valid() || !to.Valid() {
		return devices.NewFault(devices.StationRobot, "move_between",
			fmt.Errorf("unknown station %q -> %q", from, to))
	}

	if from == devices.StationRack {
		if err := a.step(ctx, events.RobotMoveStart, events.Payload{}); err != nil {
			return err
		}
		if err := a.step(ctx, events.RobotMovePickup, events.Payload{"slot": slot}); err != nil {
			return err
		}
	}

	if err := a.step(ctx, events.RobotCloseGripper, events.Payload{}); err != nil {
		return err
	}
	movePayload := events.Payload{
		"slide": slideID,
		"from":  string(from),
		"to":    string(to),
	}
	// Legs between unslotted stations carry no slot.
	if slot > 0 {
		movePayload["slot"] = slot
	}
	if err := a.step(ctx, events.RobotMove, movePayload); err != nil {
		return err
	}
	if err := a.step(ctx, events.RobotOpenGripper, events.Payload{}); err != nil {
		return err
	}
	return a.step(ctx, events.RobotSafety, events.Payload{})
}
