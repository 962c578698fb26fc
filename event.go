package ui

import (
	"encoding/json"
	"strconv"
	"strings"
)

// EventKind discriminates the events travelling on the bus.
type EventKind string

const (
	KindRest     EventKind = "rest"
	KindStream   EventKind = "ws"
	KindClick    EventKind = "click"
	KindAuth     EventKind = "auth"
	KindUnauth   EventKind = "unauth"
	KindTopError EventKind = "top-error"
)

// Event is something that happened and that subscribers of the bus may react to.
// The set of events is closed: every implementation lives in this package.
// Events are values and are never mutated once fired.
type Event interface {
	Kind() EventKind
	isEvent()
}

// RestEvent is the outcome of a REST call that reached the server, whatever
// the status code.
type RestEvent struct {
	// URL is the logical API path that was called, without the API prefix.
	URL    string
	Status int
	// Response is the decoded JSON body. It is empty, never nil, when the
	// response was not JSON.
	Response map[string]any
	Body     []byte
}

func (RestEvent) Kind() EventKind { return KindRest }
func (RestEvent) isEvent()        {}

// OK reports a 2xx status.
func (e RestEvent) OK() bool { return e.Status >= 200 && e.Status < 300 }

// Decode unmarshals the raw JSON body into v.
func (e RestEvent) Decode(v any) error {
	return json.Unmarshal(e.Body, v)
}

// Payload returns the Payload member of a {Message, Payload} envelope.
func (e RestEvent) Payload() map[string]any {
	p, _ := e.Response["Payload"].(map[string]any)
	return p
}

// StreamMessage is a message received on the live updates socket.
type StreamMessage struct {
	Tag        string
	RunRef     *RunRef        `json:",omitempty"`
	SourceNode *NodeRef       `json:",omitempty"`
	ID         int64          `json:",omitempty"`
	Good       bool           `json:",omitempty"`
	Opts       map[string]any `json:",omitempty"`
}

// Action returns the action option of sys.state messages.
func (m StreamMessage) Action() string {
	a, _ := m.Opts["action"].(string)
	return a
}

// HasPrefix reports whether the tag starts with any of the prefixes.
func (m StreamMessage) HasPrefix(prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(m.Tag, p) {
			return true
		}
	}
	return false
}

// RunRef identifies a run of a flow.
type RunRef struct {
	FlowRef FlowRef
	Run     RunID
}

// FlowRef identifies a version of a flow.
type FlowRef struct {
	ID  string
	Ver int
}

// RunID is the host and sequence pair that names a run.
type RunID struct {
	HostID string
	ID     int64
}

// String gives the host-id form the server uses in URLs and form posts.
func (r RunID) String() string { return r.HostID + "-" + strconv.FormatInt(r.ID, 10) }

// NodeRef identifies a node (trigger, task or merge) of a flow.
type NodeRef struct {
	Class string
	ID    string
}

// StreamEvent wraps a message received from the live updates socket.
type StreamEvent struct {
	Msg StreamMessage
}

func (StreamEvent) Kind() EventKind { return KindStream }
func (StreamEvent) isEvent()        {}

// ClickEvent is a user click that asks the controller to go somewhere.
type ClickEvent struct {
	What     string
	ID       string
	ParentID string
}

func (ClickEvent) Kind() EventKind { return KindClick }
func (ClickEvent) isEvent()        {}

// AuthEvent tells the header the session is authenticated.
type AuthEvent struct{}

func (AuthEvent) Kind() EventKind { return KindAuth }
func (AuthEvent) isEvent()        {}

// UnauthEvent tells the header the session is gone.
type UnauthEvent struct{}

func (UnauthEvent) Kind() EventKind { return KindUnauth }
func (UnauthEvent) isEvent()        {}

// ErrorEvent is shown to the user in the error banner.
type ErrorEvent struct {
	Message string
	Status  int
	Body    string
}

func (ErrorEvent) Kind() EventKind { return KindTopError }
func (ErrorEvent) isEvent()        {}
