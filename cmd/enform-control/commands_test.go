package main

import (
	"context"
	"errors"
	"testing"
)

func TestExecuteArgumentValidation(t *testing.T) {
	type params struct {
		args []string
		err  error
	}
	testCases := []params{
		{args: []string{"frobnicate"}, err: ErrUnknownCommand},
		{args: []string{"lock"}, err: ErrRequiresVIN},
		{args: []string{"status", "refresh"}, err: ErrRequiresVIN},
		{args: []string{"add-vin", "100001"}, err: ErrCommandLineArgs},
		{args: []string{"add-vin", "100001", "JTHBE1D27F5019392", "extra"}, err: ErrCommandLineArgs},
		{args: []string{"vehicles", "refresh", "extra"}, err: ErrCommandLineArgs},
	}
	a := &app{}
	for _, test := range testCases {
		err := execute(context.Background(), a, test.args)
		if !errors.Is(err, test.err) {
			t.Errorf("execute(%v) = %v, expected %v", test.args, err, test.err)
		}
	}
}

func TestCommandTableShape(t *testing.T) {
	for name, info := range commands {
		if info.help == "" {
			t.Errorf("command %s has no help text", name)
		}
		if info.handler == nil {
			t.Errorf("command %s has no handler", name)
		}
		for _, arg := range append(append([]Argument{}, info.args...), info.optional...) {
			if arg.name == "" || arg.help == "" {
				t.Errorf("command %s has an undocumented argument", name)
			}
		}
	}
}
