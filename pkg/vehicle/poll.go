package vehicle

import (
	"context"
	"fmt"
	"time"

	"github.com/lexusenform/vehicle-remote/internal/log"
	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

// waitUntilFinished polls the progress endpoint for namespace until a terminal condition.
//
// Terminal success requires a Completed classification and, when requiredVehicleCode is
// non-empty, a matching vehicle result code; a completion with the wrong code is treated as
// not-yet-finished and polling continues. Failed and Unknown classifications are terminal
// failures. The deadline is wall-clock time since polling began.
func (v *Vehicle) waitUntilFinished(ctx context.Context, s Session, namespace, requiredVehicleCode string) error {
	token, err := s.IDToken(ctx)
	if err != nil {
		return err
	}
	command := protocol.ProgressCommand(token, v.FullVIN, namespace)
	deadline := time.Now().Add(v.pollTimeout())

	for {
		rsp, err := s.Execute(ctx, command)
		if err != nil {
			return err
		}
		progress, ok := rsp.(*protocol.Progress)
		if !ok {
			return fmt.Errorf("unexpected progress response type %T", rsp)
		}

		if progress.Status == protocol.StatusCompleted &&
			(requiredVehicleCode == "" || progress.VehicleCode == requiredVehicleCode) {
			return nil
		}
		if progress.Status == protocol.StatusFailed || progress.Status == protocol.StatusUnknown {
			if progress.Progress != "" {
				return &protocol.CommandError{
					Message: fmt.Sprintf("command failed with progress value %q", progress.Progress),
				}
			}
			return &protocol.CommandError{
				Message:      "command failed",
				ResponseText: progress.ResponseText,
			}
		}
		if time.Now().After(deadline) {
			return protocol.ErrCommandTimeout
		}

		log.Debug("Progress for %s: %q (vehicle code %q)", namespace, progress.Progress, progress.VehicleCode)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(v.pollInterval()):
		}
	}
}
