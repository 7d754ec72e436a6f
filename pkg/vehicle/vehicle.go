// Package vehicle provides the Vehicle type and its remote operations: door lock/unlock,
// remote engine start/stop, and status retrieval.
//
// Operations take an explicit Session rather than holding a reference back to the account
// that discovered the vehicle; a Vehicle is a plain value that can be cached, serialized,
// and shared between accounts pointed at the same VIN.
package vehicle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

//go:generate mockgen -destination=../../internal/mocks/session.go -package=mocks github.com/lexusenform/vehicle-remote/pkg/vehicle Session

// Session supplies the account-scoped pieces a vehicle operation needs: a valid id token
// and a transport for built commands. *account.Account implements it.
type Session interface {
	// IDToken returns a currently-valid id token, refreshing or logging in as needed.
	IDToken(ctx context.Context) (string, error)

	// Execute submits a built command and returns its parsed response.
	Execute(ctx context.Context, command *protocol.Command) (protocol.Response, error)
}

// Defaults for the progress poll loop. The vendor's completion latency is dominated by SMS
// dispatch and vehicle wakeup, so a fixed interval with a generous ceiling is adequate; no
// backoff.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 3 * time.Minute
)

// Vehicle identifies one vehicle bound to an account.
//
// The listing API returns only a truncated PartialVIN. FullVIN is supplied out-of-band by
// the user (see account.AddVINMapping) and is required for every remote operation.
type Vehicle struct {
	ID         string          `json:"vehicle_id"`
	PartialVIN string          `json:"partial_vin"`
	FullVIN    string          `json:"full_vin,omitempty"`
	Make       string          `json:"make"`
	Model      string          `json:"model"`
	Year       string          `json:"year"`
	ExtraData  json.RawMessage `json:"extra_data,omitempty"`

	// PollInterval and PollTimeout override the progress poll loop's defaults when
	// positive. Not persisted.
	PollInterval time.Duration `json:"-"`
	PollTimeout  time.Duration `json:"-"`
}

// ensureVIN fails fast when the full VIN is unknown, before any network traffic.
func (v *Vehicle) ensureVIN() error {
	if v.FullVIN == "" {
		return &protocol.MissingVINError{VehicleID: v.ID}
	}
	return nil
}

func (v *Vehicle) pollInterval() time.Duration {
	if v.PollInterval > 0 {
		return v.PollInterval
	}
	return DefaultPollInterval
}

func (v *Vehicle) pollTimeout() time.Duration {
	if v.PollTimeout > 0 {
		return v.PollTimeout
	}
	return DefaultPollTimeout
}
