package protocol

import (
	"strings"
	"testing"
)

func assertBodyContains(t *testing.T, command *Command, fragments ...string) {
	t.Helper()
	body := string(command.Body)
	for _, fragment := range fragments {
		if !strings.Contains(body, fragment) {
			t.Errorf("envelope missing %q:\n%s", fragment, body)
		}
	}
}

func TestEnvelopeCommonBlock(t *testing.T) {
	command := StatusCommand("test-token", "5TDZA23C13S000000")
	assertBodyContains(t, command,
		`<AUTH REGION="US">test-token</AUTH>`,
		"<LANG>en</LANG>",
		"<VERSION>Android</VERSION>",
		"<SERIAL_NO>00000000</SERIAL_NO>",
		"<TEL_NO>0000000000</TEL_NO>",
		"<TYPE>Android</TYPE>",
		"<USER_ID>5TDZA23C13S000000</USER_ID>",
		"<SESSION></SESSION>",
	)
	if !strings.HasPrefix(string(command.Body), "<SPML>") {
		t.Errorf("envelope root element: %s", command.Body)
	}
}

func TestStatusCommand(t *testing.T) {
	command := StatusCommand("tok", "VIN123")
	if command.Path != "/get_realtime_status.aspx" {
		t.Errorf("path %q", command.Path)
	}
	if command.Query.Get("VIN") != "VIN123" {
		t.Errorf("query %v", command.Query)
	}
	if command.Response != ResponseStatus {
		t.Errorf("response kind %v", command.Response)
	}
	if got := command.Headers.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization header %q", got)
	}
	if got := command.Headers.Get("Content-Type"); got != "text/plain charset=ISO-8859-1" {
		t.Errorf("Content-Type header %q", got)
	}
	if strings.Contains(string(command.Body), "<POSITION>") {
		t.Errorf("status request should not carry a position block:\n%s", command.Body)
	}
}

func TestProgressCommand(t *testing.T) {
	command := ProgressCommand("tok", "VIN123", NamespaceDoorLock)
	if command.Path != "/get_remote_control_status_and_latest_info.aspx" {
		t.Errorf("path %q", command.Path)
	}
	if command.Namespace != NamespaceDoorLock {
		t.Errorf("namespace %q", command.Namespace)
	}
	if command.Response != ResponseProgress {
		t.Errorf("response kind %v", command.Response)
	}
	assertBodyContains(t, command, "<COMMAND>DL</COMMAND>")
}

func TestBeginCommands(t *testing.T) {
	tests := []struct {
		name      string
		build     func(token, vin string) *Command
		namespace string
		flag      string
		query     string
	}{
		{"refresh", BeginStatusRefresh, NamespaceStatusRefresh, "<REALTIMESTATUSREQUEST>1</REALTIMESTATUSREQUEST>", "VehicleRefresh"},
		{"lock", BeginLockDoors, NamespaceDoorLock, "<DL>1</DL>", "DoorLock"},
		{"unlock", BeginUnlockDoors, NamespaceDoorLock, "<DL>2</DL>", "DoorLock"},
		{"start", BeginRemoteStart, NamespaceRemoteStart, "<RES>1</RES>", "RemoteStart"},
		{"stop", BeginRemoteStop, NamespaceRemoteStart, "<RES>2</RES>", "RemoteStop"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			command := test.build("tok", "VIN123")
			if command.Path != "/remote_control.aspx" {
				t.Errorf("path %q", command.Path)
			}
			if command.Namespace != test.namespace {
				t.Errorf("namespace %q, expected %q", command.Namespace, test.namespace)
			}
			if command.Response != ResponseAck {
				t.Errorf("response kind %v", command.Response)
			}
			if got := command.Query.Get("command"); got != test.query {
				t.Errorf("command query parameter %q, expected %q", got, test.query)
			}
			if got := command.Query.Get("VIN"); got != "VIN123" {
				t.Errorf("VIN query parameter %q", got)
			}
			assertBodyContains(t, command, test.flag,
				"<LAT>0.000000</LAT>",
				"<LON>0.000000</LON>",
				"<ACCURACY>65.000000</ACCURACY>",
			)
		})
	}
}
