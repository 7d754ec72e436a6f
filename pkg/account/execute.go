package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lexusenform/vehicle-remote/internal/log"
	"github.com/lexusenform/vehicle-remote/pkg/protocol"
)

// maxResponseLength bounds how much of a response body is read. The gateway's documents
// are a few kilobytes; anything past this is a misbehaving server.
const maxResponseLength = 1 << 20

// do sends a request after stamping common headers, and returns the response body and
// status code. A non-2xx status is not an error at this layer; callers decide.
func (a *Account) do(client *http.Client, request *http.Request) ([]byte, *http.Response, error) {
	if a.UserAgent != "" {
		request.Header.Set("User-Agent", a.UserAgent)
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseLength))
	if err != nil {
		return nil, response, err
	}
	log.Debug("%s %s returned %d: %s", request.Method, request.URL, response.StatusCode, body)
	return body, response, nil
}

func unmarshalJSON(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("unexpected server response %q: %w", body, err)
	}
	return nil
}

// Execute submits a built command to the command gateway and parses the response with the
// parser the command declared. Any 200 status counts as transport-level success; the body
// is always separately parsed.
func (a *Account) Execute(ctx context.Context, command *protocol.Command) (protocol.Response, error) {
	u := commandBaseURL + command.Path
	if len(command.Query) > 0 {
		u += "?" + command.Query.Encode()
	}
	request, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(command.Body))
	if err != nil {
		return nil, err
	}
	for name, values := range command.Headers {
		for _, value := range values {
			request.Header.Add(name, value)
		}
	}
	log.Debug("Sending command to %s: %s", u, command.Body)

	body, response, err := a.do(&a.client, request)
	if err != nil {
		return nil, err
	}
	if response.StatusCode != http.StatusOK {
		return nil, &protocol.CommandError{
			Message:      fmt.Sprintf("command failed with status %s", response.Status),
			ResponseText: string(body),
		}
	}
	return protocol.ParseResponse(command.Response, string(body), command.Namespace)
}
