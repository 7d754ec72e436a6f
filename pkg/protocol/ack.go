package protocol

import (
	"encoding/xml"
	"time"
)

// The only result code the gateway uses for an accepted command.
const resultCodeOK = "011000"

// CommandAck is the synchronous acknowledgment returned when a command is submitted.
// For asynchronous commands it only confirms the gateway accepted the request; the
// outcome arrives later through the progress endpoint.
type CommandAck struct {
	Code      string
	Timestamp time.Time // zero when the server omits RESULT/DATETIME
}

// OK reports whether the gateway accepted the command.
func (a *CommandAck) OK() bool {
	return a.Code == resultCodeOK
}

type ackDocument struct {
	Result struct {
		Code     string `xml:"CODE"`
		Datetime string `xml:"DATETIME"`
	} `xml:"RESULT"`
}

// ParseAck decodes a basic command response.
func ParseAck(text string) (*CommandAck, error) {
	var doc ackDocument
	if err := xml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &CommandAck{
		Code:      doc.Result.Code,
		Timestamp: parseVendorTime(doc.Result.Datetime),
	}, nil
}
