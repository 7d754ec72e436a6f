package protocol

import (
	"fmt"
)

// Response is the tagged union of parsed command results: *VehicleStatus, *CommandAck, or
// *Progress, selected by the Command's ResponseKind.
type Response interface {
	response()
}

func (*VehicleStatus) response() {}
func (*CommandAck) response()    {}
func (*Progress) response()      {}

// ParseResponse decodes a raw response body using the parser the command declared.
// The namespace is only consulted for progress responses, where the server echoes the
// request's namespace code as the name of the result section.
func ParseResponse(kind ResponseKind, text, namespace string) (Response, error) {
	switch kind {
	case ResponseStatus:
		return ParseStatus(text)
	case ResponseAck:
		return ParseAck(text)
	case ResponseProgress:
		return ParseProgress(text, namespace)
	}
	return nil, fmt.Errorf("unrecognized response kind %d", kind)
}
