// Package codec builds outgoing JSON-RPC request envelopes and normalizes
// response bodies into one decoded result shape. Remote servers answer
// either with a bare JSON document or with an SSE-framed body; both decode
// to the same result member, or to an RPCError when the response carries an
// error member.
package codec

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/elnormous/contenttype"
	"github.com/google/uuid"
)

// JSON-RPC methods exposed by remote capability servers.
const (
	MethodInitialize = "initialize"
	MethodListTools  = "tools/list"
	MethodCallTool   = "tools/call"
)

// ProtocolVersion is the MCP protocol revision sent on every request.
const ProtocolVersion = "2024-11-05"

// Header names used on outgoing requests. The credential header name is
// configurable per server; HeaderAPIKey is the default.
const (
	HeaderProtocolVersion = "mcp-protocol-version"
	HeaderSessionID       = "mcp-session-id"
	HeaderIdentity        = "X-SSO-ID"
	HeaderAPIKey          = "X-API-Key"
)

// DefaultIdentity is the sentinel principal id attached when the caller did
// not supply one.
const DefaultIdentity = "demo"

// AcceptMediaTypes is the Accept header value for every request; servers
// choose between the two framings.
const AcceptMediaTypes = "application/json, text/event-stream"

var eventStreamMediaType = contenttype.NewMediaType("text/event-stream")

// Envelope is a single outgoing JSON-RPC request. The id is stamped once at
// construction and reused across retry attempts of the same logical call.
type Envelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// NewEnvelope returns an envelope for the given method with a fresh unique id.
func NewEnvelope(method string, params any) *Envelope {
	if params == nil {
		switch method {
		case MethodInitialize:
			params = DefaultInitializeParams()
		default:
			params = map[string]any{}
		}
	}
	return &Envelope{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// Marshal serializes the envelope to its wire form.
func (e *Envelope) Marshal() ([]byte, error) {
	bs, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request envelope")
	}
	return bs, nil
}

// InitializeParams are the capability-negotiation params for the initialize call.
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo"`
}

// ClientInfo identifies this client to the remote server.
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// DefaultInitializeParams returns the standard handshake params.
func DefaultInitializeParams() *InitializeParams {
	return &InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities: map[string]any{
			"roots":    map[string]any{"listChanged": true},
			"sampling": map[string]any{},
		},
		ClientInfo: ClientInfo{
			Name:    "mcphub",
			Version: "1.0.0",
		},
	}
}

// RPCError is a protocol-level fault carried in the error member of a
// response body.
type RPCError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

type responseBody struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Decode classifies the response body by content type and returns the raw
// result member, or an error when the body carries an error member or cannot
// be parsed.
func Decode(contentType string, body []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty response body")
	}

	var doc []byte
	if isEventStream(contentType) {
		data, err := firstEventData(body)
		if err != nil {
			return nil, err
		}
		doc = data
	} else {
		doc = body
	}

	var resp responseBody
	if err := json.Unmarshal(doc, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to parse response body")
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// isEventStream classifies the content type once; anything that fails to
// parse or does not match text/event-stream is treated as bare JSON.
func isEventStream(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, err := contenttype.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt.Matches(eventStreamMediaType)
}

// firstEventData returns the payload of the first `data: ` line. Servers
// answer one response per request; subsequent frames in the same body are
// dropped intentionally.
func firstEventData(body []byte) ([]byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan event stream")
	}
	return nil, errors.New("no data found in event stream response")
}
