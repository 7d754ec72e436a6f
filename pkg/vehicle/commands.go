package vehicle

import (
	"context"
	"fmt"

	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

// The vehicle result code confirming a lock/unlock/start/stop landed as requested. The
// gateway can report NormalEnded for an unrelated or ambiguous state, so completion alone
// is not proof the requested action happened.
const confirmedVehicleCode = "01"

// LockDoors locks the doors and blocks until the vehicle confirms.
func (v *Vehicle) LockDoors(ctx context.Context, s Session) error {
	return v.remoteCommand(ctx, s, protocol.BeginLockDoors)
}

// UnlockDoors unlocks the doors and blocks until the vehicle confirms.
func (v *Vehicle) UnlockDoors(ctx context.Context, s Session) error {
	return v.remoteCommand(ctx, s, protocol.BeginUnlockDoors)
}

// RemoteStart starts the engine and blocks until the vehicle confirms.
func (v *Vehicle) RemoteStart(ctx context.Context, s Session) error {
	return v.remoteCommand(ctx, s, protocol.BeginRemoteStart)
}

// RemoteStop shuts down a remotely started engine and blocks until the vehicle confirms.
func (v *Vehicle) RemoteStop(ctx context.Context, s Session) error {
	return v.remoteCommand(ctx, s, protocol.BeginRemoteStop)
}

func (v *Vehicle) remoteCommand(ctx context.Context, s Session, build func(token, vin string) *protocol.Command) error {
	if err := v.ensureVIN(); err != nil {
		return err
	}
	token, err := s.IDToken(ctx)
	if err != nil {
		return err
	}
	command := build(token, v.FullVIN)
	if _, err := s.Execute(ctx, command); err != nil {
		return err
	}
	return v.waitUntilFinished(ctx, s, command.Namespace, confirmedVehicleCode)
}

// Status retrieves the vehicle's status snapshot: doors, windows, locks, odometer, and fuel
// readings.
//
// The gateway separates "ask the car to update its cached telemetry" from "read the cached
// telemetry". With forceRefresh, Status first runs a refresh command to completion, then
// reads; without it the returned data is whatever the gateway last cached.
func (v *Vehicle) Status(ctx context.Context, s Session, forceRefresh bool) (*protocol.VehicleStatus, error) {
	if err := v.ensureVIN(); err != nil {
		return nil, err
	}
	token, err := s.IDToken(ctx)
	if err != nil {
		return nil, err
	}

	if forceRefresh {
		command := protocol.BeginStatusRefresh(token, v.FullVIN)
		if _, err := s.Execute(ctx, command); err != nil {
			return nil, err
		}
		if err := v.waitUntilFinished(ctx, s, command.Namespace, ""); err != nil {
			return nil, err
		}
	}

	rsp, err := s.Execute(ctx, protocol.StatusCommand(token, v.FullVIN))
	if err != nil {
		return nil, err
	}
	status, ok := rsp.(*protocol.VehicleStatus)
	if !ok {
		return nil, fmt.Errorf("unexpected status response type %T", rsp)
	}
	return status, nil
}
