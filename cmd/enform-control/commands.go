package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexusenform/vehicle-remote/pkg/account"
	"github.com/lexusenform/vehicle-remote/pkg/vehicle"
)

var (
	ErrCommandLineArgs = errors.New("invalid command line arguments")
	ErrUnknownCommand  = errors.New("unrecognized command")
	ErrRequiresVIN     = errors.New("command requires a VIN (use -vin or $ENFORM_VIN)")
)

type Argument struct {
	name string
	help string
}

// app bundles the authenticated account with the vehicle-targeting settings resolved from
// flags, so handlers don't each re-resolve them.
type app struct {
	acct         *account.Account
	vin          string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// vehicle resolves the target vehicle from the configured VIN, logging in and fetching the
// vehicle list if needed.
func (a *app) vehicle(ctx context.Context) (*vehicle.Vehicle, error) {
	if a.vin == "" {
		return nil, ErrRequiresVIN
	}
	car, err := a.acct.Vehicle(ctx, a.vin, false)
	if err != nil {
		return nil, err
	}
	car.PollInterval = a.pollInterval
	car.PollTimeout = a.pollTimeout
	return car, nil
}

type Handler func(ctx context.Context, a *app, args map[string]string) error

type Command struct {
	help            string
	requiresVehicle bool
	args            []Argument
	optional        []Argument
	handler         Handler
}

func (c *Command) Usage(name string) {
	fmt.Printf("Usage: %s", name)
	for _, arg := range c.args {
		fmt.Printf(" %s", arg.name)
	}
	for _, arg := range c.optional {
		fmt.Printf(" [%s]", arg.name)
	}
	fmt.Printf("\n%s\n", c.help)
	if len(c.args)+len(c.optional) > 0 {
		fmt.Println("Arguments:")
	}
	for _, arg := range append(append([]Argument{}, c.args...), c.optional...) {
		fmt.Printf("  %-14s %s\n", arg.name, arg.help)
	}
}

var commands = map[string]*Command{
	"lock": {
		help:            "Lock the vehicle's doors and wait for confirmation",
		requiresVehicle: true,
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			car, err := a.vehicle(ctx)
			if err != nil {
				return err
			}
			if err := car.LockDoors(ctx, a.acct); err != nil {
				return err
			}
			fmt.Println("Doors locked.")
			return nil
		},
	},
	"unlock": {
		help:            "Unlock the vehicle's doors and wait for confirmation",
		requiresVehicle: true,
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			car, err := a.vehicle(ctx)
			if err != nil {
				return err
			}
			if err := car.UnlockDoors(ctx, a.acct); err != nil {
				return err
			}
			fmt.Println("Doors unlocked.")
			return nil
		},
	},
	"start": {
		help:            "Start the engine remotely and wait for confirmation",
		requiresVehicle: true,
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			car, err := a.vehicle(ctx)
			if err != nil {
				return err
			}
			if err := car.RemoteStart(ctx, a.acct); err != nil {
				return err
			}
			fmt.Println("Engine started.")
			return nil
		},
	},
	"stop": {
		help:            "Shut down a remotely started engine and wait for confirmation",
		requiresVehicle: true,
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			car, err := a.vehicle(ctx)
			if err != nil {
				return err
			}
			if err := car.RemoteStop(ctx, a.acct); err != nil {
				return err
			}
			fmt.Println("Engine stopped.")
			return nil
		},
	},
	"status": {
		help:            "Print the vehicle's doors, windows, and gauge readings",
		requiresVehicle: true,
		optional: []Argument{
			{name: "MODE", help: "Pass 'refresh' to ask the vehicle for fresh telemetry first (slow)"},
		},
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			car, err := a.vehicle(ctx)
			if err != nil {
				return err
			}
			forceRefresh := args["MODE"] == "refresh"
			status, err := car.Status(ctx, a.acct, forceRefresh)
			if err != nil {
				return err
			}
			fmt.Print(status)
			return nil
		},
	},
	"vehicles": {
		help: "List the vehicles bound to the account",
		optional: []Argument{
			{name: "MODE", help: "Pass 'refresh' to bypass the cached vehicle list"},
		},
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			vehicles, err := a.acct.Vehicles(ctx, args["MODE"] == "refresh")
			if err != nil {
				return err
			}
			for _, v := range vehicles {
				fullVIN := v.FullVIN
				if fullVIN == "" {
					fullVIN = "(not set: run add-vin)"
				}
				fmt.Printf("%s: %s %s %s\n  partial VIN: %s\n  full VIN:    %s\n",
					v.ID, v.Year, v.Make, v.Model, v.PartialVIN, fullVIN)
			}
			return nil
		},
	},
	"add-vin": {
		help: "Register the full VIN for a vehicle id (the listing API only returns partial VINs)",
		args: []Argument{
			{name: "VEHICLE_ID", help: "Vehicle id as printed by the vehicles command"},
			{name: "VIN", help: "Full Vehicle Identification Number"},
		},
		handler: func(ctx context.Context, a *app, args map[string]string) error {
			a.acct.AddVINMapping(args["VEHICLE_ID"], args["VIN"])
			fmt.Printf("Mapped vehicle %s to VIN %s.\n", args["VEHICLE_ID"], args["VIN"])
			return nil
		},
	},
}

func execute(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return errors.New("missing COMMAND")
	}
	info, ok := commands[args[0]]
	if !ok {
		return ErrUnknownCommand
	}
	if info.requiresVehicle && a.vin == "" {
		return ErrRequiresVIN
	}

	if len(args)-1 < len(info.args) || len(args)-1 > len(info.args)+len(info.optional) {
		writeErr("Invalid number of command line arguments: %d (%d required, %d optional).",
			len(args)-1, len(info.args), len(info.optional))
		return ErrCommandLineArgs
	}
	keywords := make(map[string]string)
	for i, argInfo := range info.args {
		keywords[argInfo.name] = args[i+1]
	}
	index := len(info.args) + 1
	for _, argInfo := range info.optional {
		if index >= len(args) {
			break
		}
		keywords[argInfo.name] = args[index]
		index++
	}
	return info.handler(ctx, a, keywords)
}
