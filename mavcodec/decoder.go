package mavcodec

import (
	"fmt"
	"net"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/ardupilotmega"
)

// outSystemID is the system ID this process presents on the wire. The
// decoder never transmits outbound telemetry frames of its own, but
// gomavlib requires one to construct a node.
const outSystemID = 250

// Decoder owns a single UDP socket bound to one port and turns inbound
// MAVLink v2 frames into Messages. It delegates socket lifecycle (bind,
// read, close) to gomavlib's node, the same way every production consumer
// in the ardupilot/gomavlib ecosystem does.
type Decoder struct {
	port int
	node *gomavlib.Node
}

// NewDecoder binds 0.0.0.0:port and starts accepting MAVLink v2 frames
// under the ArduPilot dialect (a superset of the common dialect that also
// carries WIND). Returns an error if the port cannot be bound.
func NewDecoder(port int) (*Decoder, error) {
	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints: []gomavlib.EndpointConf{
			gomavlib.EndpointUDPServer{Address: fmt.Sprintf("0.0.0.0:%d", port)},
		},
		Dialect:     ardupilotmega.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: outSystemID,
	})
	if err != nil {
		return nil, fmt.Errorf("mavcodec: bind port %d: %w", port, err)
	}
	return &Decoder{port: port, node: node}, nil
}

// Events exposes the underlying gomavlib event stream. Callers type-switch
// on *gomavlib.EventFrame, *gomavlib.EventParseError, *gomavlib.EventChannelOpen
// and *gomavlib.EventChannelClose; only *gomavlib.EventFrame values are
// converted into Messages, via Convert.
func (d *Decoder) Events() chan gomavlib.Event {
	return d.node.Events()
}

// Close releases the underlying socket. Safe to call once.
func (d *Decoder) Close() {
	d.node.Close()
}

// SenderIP extracts the remote IP address from a channel's string
// description, falling back to the raw description if it cannot be parsed
// as host:port. Callers pass evt.Channel.String() for a given EventFrame.
func SenderIP(channelDesc string) string {
	if host, _, err := net.SplitHostPort(channelDesc); err == nil {
		return host
	}
	return channelDesc
}
