// Package protocol implements the vendor's SPML command protocol: the XML envelopes posted
// to the command gateway and the parsers for the documents it returns.
//
// Remote commands are fire-and-forget on the vendor side. Submitting one returns an
// acknowledgment only; the actual outcome must be tracked by polling the progress endpoint
// with the same namespace code that named the command's flag element in the outbound
// envelope.
package protocol

import (
	"encoding/xml"
	"net/http"
	"net/url"
)

// ResponseKind selects the parser applied to a command's response body.
type ResponseKind int

const (
	ResponseStatus ResponseKind = iota
	ResponseAck
	ResponseProgress
)

// Namespace codes name the flag element of an asynchronous command and the section the
// progress endpoint echoes back for it.
const (
	NamespaceStatusRefresh = "REALTIMESTATUSREQUEST"
	NamespaceDoorLock      = "DL"
	NamespaceRemoteStart   = "RES"
)

// Command is one outbound request, fully built: the serialized envelope plus the path,
// query, and headers it must be posted with. Commands are values; build one per invocation
// and discard it after execution.
type Command struct {
	Body      []byte
	Path      string
	Namespace string
	Query     url.Values
	Headers   http.Header
	Response  ResponseKind
}

// The envelope document. COMMON carries auth and device boilerplate; the optional flag
// element (named by a namespace code), COMMAND element, and POSITION block are
// command-specific.
type envelope struct {
	XMLName  xml.Name     `xml:"SPML"`
	Common   commonBlock  `xml:"COMMON"`
	Flag     *flagElement `xml:",omitempty"`
	Command  string       `xml:"COMMAND,omitempty"`
	Position *position    `xml:"POSITION"`
}

type commonBlock struct {
	Auth    authElement `xml:"AUTH"`
	Lang    string      `xml:"LANG"`
	Version string      `xml:"VERSION"`
	Device  device      `xml:"DEVICE"`
	User    user        `xml:"USER"`
	Session string      `xml:"SESSION"`
}

type authElement struct {
	Region string `xml:"REGION,attr"`
	Token  string `xml:",chardata"`
}

type device struct {
	SerialNo string `xml:"SERIAL_NO"`
	TelNo    string `xml:"TEL_NO"`
	Type     string `xml:"TYPE"`
}

type user struct {
	UserID string `xml:"USER_ID"`
}

type flagElement struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type position struct {
	Lat      string `xml:"LAT"`
	Lon      string `xml:"LON"`
	Accuracy string `xml:"ACCURACY"`
}

func newEnvelope(token, vin string) *envelope {
	return &envelope{
		Common: commonBlock{
			Auth:    authElement{Region: "US", Token: token},
			Lang:    "en",
			Version: "Android",
			Device:  device{SerialNo: "00000000", TelNo: "0000000000", Type: "Android"},
			User:    user{UserID: vin},
		},
	}
}

func (e *envelope) encode() []byte {
	body, err := xml.Marshal(e)
	if err != nil {
		// The envelope contains only string fields; Marshal cannot fail on it.
		panic(err)
	}
	return body
}

func bearerHeaders(token string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return h
}

func textHeaders(token string) http.Header {
	h := bearerHeaders(token)
	h.Set("Content-Type", "text/plain charset=ISO-8859-1")
	return h
}

// StatusCommand fetches the vehicle's cached realtime status snapshot. It does not ask the
// vehicle to update that snapshot first; see BeginStatusRefresh.
func StatusCommand(token, vin string) *Command {
	return &Command{
		Body:     newEnvelope(token, vin).encode(),
		Path:     "/get_realtime_status.aspx",
		Query:    url.Values{"VIN": {vin}},
		Headers:  textHeaders(token),
		Response: ResponseStatus,
	}
}

// ProgressCommand queries execution progress for the command identified by namespace.
func ProgressCommand(token, vin, namespace string) *Command {
	doc := newEnvelope(token, vin)
	doc.Command = namespace
	return &Command{
		Body:      doc.encode(),
		Path:      "/get_remote_control_status_and_latest_info.aspx",
		Namespace: namespace,
		Headers:   textHeaders(token),
		Response:  ResponseProgress,
	}
}

// The gateway requires a POSITION block on remote commands but accepts a placeholder
// location; a real fix is not needed for command acceptance.
func beginCommand(token, vin, namespace, value, commandName string) *Command {
	doc := newEnvelope(token, vin)
	doc.Flag = &flagElement{XMLName: xml.Name{Local: namespace}, Value: value}
	doc.Position = &position{Lat: "0.000000", Lon: "0.000000", Accuracy: "65.000000"}
	return &Command{
		Body:      doc.encode(),
		Path:      "/remote_control.aspx",
		Namespace: namespace,
		Query:     url.Values{"command": {commandName}, "VIN": {vin}},
		Headers:   bearerHeaders(token),
		Response:  ResponseAck,
	}
}

// BeginStatusRefresh asks the vehicle to update its cached telemetry. The refreshed data
// must be read separately with StatusCommand once the refresh completes.
func BeginStatusRefresh(token, vin string) *Command {
	return beginCommand(token, vin, NamespaceStatusRefresh, "1", "VehicleRefresh")
}

// BeginLockDoors starts a door lock.
func BeginLockDoors(token, vin string) *Command {
	return beginCommand(token, vin, NamespaceDoorLock, "1", "DoorLock")
}

// BeginUnlockDoors starts a door unlock.
func BeginUnlockDoors(token, vin string) *Command {
	return beginCommand(token, vin, NamespaceDoorLock, "2", "DoorLock")
}

// BeginRemoteStart starts the engine.
func BeginRemoteStart(token, vin string) *Command {
	return beginCommand(token, vin, NamespaceRemoteStart, "1", "RemoteStart")
}

// BeginRemoteStop shuts the engine down after a remote start.
func BeginRemoteStop(token, vin string) *Command {
	return beginCommand(token, vin, NamespaceRemoteStart, "2", "RemoteStop")
}
