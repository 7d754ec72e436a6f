package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenFormat indicates a token was not a three-part JWT.
	ErrTokenFormat = errors.New("token must be in JWT format: missing header, claims, or signature")

	// ErrCommandTimeout indicates the progress poll loop reached its deadline before the
	// vehicle reported a terminal state. The command may still complete; the vendor does not
	// support canceling a command that has already been dispatched over SMS.
	ErrCommandTimeout = errors.New("command timed out without completing")
)

// DecodeError indicates a base64 or JSON fragment (an OAuth state blob or a JWT claims
// segment) could not be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failure: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ParseError indicates the server returned a response that was not a well-formed document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed server response: %s", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AuthError indicates the identity provider or the vendor rejected a login, refresh, or
// token exchange. Description carries the server-provided error text when present.
type AuthError struct {
	Description string
	Err         error
}

func (e *AuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authentication failure: %s", e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("authentication failure: %s", e.Err)
	}
	return "authentication failure"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// CommandError indicates a command was rejected at the transport level or reported a
// terminal failure while being tracked. ResponseText holds the server's raw response when
// no more structured detail is available.
type CommandError struct {
	Message      string
	ResponseText string
}

func (e *CommandError) Error() string {
	if e.ResponseText != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.ResponseText)
	}
	return e.Message
}

// MissingVINError indicates a vehicle-targeting operation was attempted on a vehicle whose
// full VIN is unknown. The listing API only ever returns partial VINs, so the full VIN must
// be registered with Account.AddVINMapping before remote commands can target the vehicle.
type MissingVINError struct {
	VehicleID string
}

func (e *MissingVINError) Error() string {
	return fmt.Sprintf("vehicle %s has no full VIN: register one with account.AddVINMapping(%q, vin)",
		e.VehicleID, e.VehicleID)
}
