package cgminer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultPort is the CGMiner API port.
const DefaultPort = 4028

// DefaultTimeout bounds one command round trip.
const DefaultTimeout = 5 * time.Second

// maxReply caps a single reply; stats replies are a few tens of KiB.
const maxReply = 1 << 20

type request struct {
	Command   string `json:"command"`
	Parameter string `json:"parameter,omitempty"`
}

// status is one entry of a reply's STATUS section.
type status struct {
	Status string `json:"STATUS"`
	Code   int    `json:"Code"`
	Msg    string `json:"Msg"`
}

// reply is a decoded API response. Sections are kept raw and decoded on
// demand because devices disagree on value types.
type reply struct {
	sections map[string]json.RawMessage
	status   []status
}

// ok reports whether the device acknowledged the command.
func (r reply) ok() bool {
	if len(r.status) == 0 {
		return false
	}
	s := r.status[0].Status
	return s == "S" || s == "I"
}

// message returns the first status message.
func (r reply) message() string {
	if len(r.status) == 0 {
		return ""
	}
	return r.status[0].Msg
}

// section returns the entries stored under name. Values are decoded with
// json.Number so numeric strings and numbers can be treated alike.
func (r reply) section(name string) ([]map[string]any, error) {
	raw, ok := r.sections[name]
	if !ok {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out []map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: section %s: %w", ErrBadResponse, name, err)
	}
	return out, nil
}

// transport sends one command per TCP connection, as the API requires.
type transport struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// do sends cmd and decodes the reply. The exchange is bounded by the
// transport timeout and by ctx.
func (t *transport) do(ctx context.Context, cmd, param string) (reply, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return reply{}, fmt.Errorf("dial %s: %w", t.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	payload, err := json.Marshal(request{Command: cmd, Parameter: param})
	if err != nil {
		return reply{}, fmt.Errorf("encoding %s: %w", cmd, err)
	}
	if _, err := conn.Write(payload); err != nil {
		return reply{}, t.ioError(ctx, cmd, err)
	}

	raw, err := io.ReadAll(io.LimitReader(conn, maxReply))
	if err != nil {
		return reply{}, t.ioError(ctx, cmd, err)
	}
	return decodeReply(cmd, raw)
}

// ioError prefers the context error so callers can tell cancellation from
// a dead device.
func (t *transport) ioError(ctx context.Context, cmd string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s on %s: %w", cmd, t.addr, ctxErr)
	}
	return fmt.Errorf("%s on %s: %w", cmd, t.addr, err)
}

func decodeReply(cmd string, raw []byte) (reply, error) {
	// Replies are NUL terminated.
	raw = bytes.TrimRight(raw, "\x00\r\n ")
	if len(raw) == 0 {
		return reply{}, fmt.Errorf("%w: empty reply to %s", ErrBadResponse, cmd)
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return reply{}, fmt.Errorf("%w: %s: %w", ErrBadResponse, cmd, err)
	}

	r := reply{sections: sections}
	if st, ok := sections["STATUS"]; ok {
		if err := json.Unmarshal(st, &r.status); err != nil {
			return reply{}, fmt.Errorf("%w: %s status: %w", ErrBadResponse, cmd, err)
		}
	}
	return r, nil
}
