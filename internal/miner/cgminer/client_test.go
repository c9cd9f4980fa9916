package cgminer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/minergate/internal/miner"
)

// fakeDevice answers CGMiner API commands on a loopback listener.
type fakeDevice struct {
	ln      net.Listener
	mu      sync.Mutex
	led     bool
	refuse  bool
	silent  bool
	replies map[string]string
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	d := &fakeDevice{
		ln: ln,
		replies: map[string]string{
			"version": `{"STATUS":[{"STATUS":"S","Msg":"BMMiner versions"}],"VERSION":[{"BMMiner":"2.0.0","API":"3.1","Type":"Antminer S19"}]}`,
			"summary": `{"STATUS":[{"STATUS":"S"}],"SUMMARY":[{"GHS 5s":"95123.45","GHS av":95000}]}`,
			"pools":   `{"STATUS":[{"STATUS":"S"}],"POOLS":[{"POOL":1,"URL":"stratum+tcp://b:3333","User":"w.2"},{"POOL":0,"URL":"stratum+tcp://a:3333","User":"w.1"}]}`,
			"config":  `{"STATUS":[{"STATUS":"S"}],"CONFIG":[{"Hostname":"rack1-s19"}]}`,
		},
	}
	t.Cleanup(func() { _ = ln.Close() })
	go d.serve()
	return d
}

func (d *fakeDevice) port() int {
	return d.ln.Addr().(*net.TCPAddr).Port
}

func (d *fakeDevice) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.handle(conn)
	}
}

func (d *fakeDevice) handle(conn net.Conn) {
	defer conn.Close()

	var req request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.silent && req.Command != "version" {
		time.Sleep(200 * time.Millisecond)
		return
	}

	var out string
	switch req.Command {
	case "stats":
		out = `{"STATUS":[{"STATUS":"S"}],"STATS":[{"BMMiner":"2.0.0"},{"chain_rate1":"31500.00","chain_rate2":"32000.00","chain_rate3":"31600.00",` +
			`"chain_acn1":76,"chain_acn2":76,"chain_acn3":0,"temp_pcb1":"58-62-57-60","temp_chip1":"75-80-74-77","temp2":61,` +
			`"fan1":5400,"fan2":0,"fan3":5500,"total_rateideal":"95000","miner_count":76,"led":` + strconv.FormatBool(d.led) + `}]}`
	case "ascset":
		if d.refuse {
			out = `{"STATUS":[{"STATUS":"E","Msg":"ASC 0 set failed"}]}`
		} else {
			d.led = req.Parameter == "0,led,1"
			out = `{"STATUS":[{"STATUS":"S","Msg":"ASC 0 set OK"}]}`
		}
	default:
		out = d.replies[req.Command]
		if out == "" {
			out = `{"STATUS":[{"STATUS":"E","Msg":"Invalid command"}]}`
		}
	}
	_, _ = conn.Write(append([]byte(out), 0))
}

func connect(t *testing.T, d *fakeDevice, timeout time.Duration) miner.DeviceClient {
	t.Helper()
	c, err := NewFactory(d.port(), timeout).Connect(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return c
}

func TestClient_Telemetry(t *testing.T) {
	d := newFakeDevice(t)
	c := connect(t, d, time.Second)

	rec, err := c.Telemetry(context.Background())
	if err != nil {
		t.Fatalf("Telemetry() error = %v", err)
	}

	if rec.IP != "127.0.0.1" {
		t.Errorf("IP = %q", rec.IP)
	}
	if rec.Model == nil || *rec.Model != "Antminer S19" || rec.Make == nil || *rec.Make != "Antminer" {
		t.Errorf("Model/Make = %v/%v", rec.Model, rec.Make)
	}
	if rec.Hashrate == nil || *rec.Hashrate != 95.12 {
		t.Errorf("Hashrate = %v, want 95.12", rec.Hashrate)
	}
	if b := rec.Boards[0]; b.Hashrate == nil || *b.Hashrate != 31.5 || b.Temp == nil || *b.Temp != 62 || b.ChipTemp == nil || *b.ChipTemp != 80 {
		t.Errorf("left board = %+v", b)
	}
	if rec.Boards[1].Temp == nil || *rec.Boards[1].Temp != 61 {
		t.Errorf("center board temp fallback = %v, want 61", rec.Boards[1].Temp)
	}
	if rec.TotalChips == nil || *rec.TotalChips != 152 || rec.IdealChips == nil || *rec.IdealChips != 228 {
		t.Errorf("chips total=%v ideal=%v", rec.TotalChips, rec.IdealChips)
	}
	if rec.Nominal == nil || *rec.Nominal {
		t.Errorf("Nominal = %v, want false", rec.Nominal)
	}
	if rec.Fans[0] == nil || *rec.Fans[0] != 5400 || rec.Fans[1] == nil || *rec.Fans[1] != 5500 || rec.Fans[2] != nil {
		t.Errorf("fans = %v %v %v", rec.Fans[0], rec.Fans[1], rec.Fans[2])
	}
	if rec.Pools[0].URL == nil || *rec.Pools[0].URL != "stratum+tcp://a:3333" {
		t.Errorf("pool 1 = %v", rec.Pools[0].URL)
	}
	if len(rec.Errors) != 1 {
		t.Errorf("Errors = %v, want one dead chain", rec.Errors)
	}
	if rec.FaultLight == nil || *rec.FaultLight {
		t.Errorf("FaultLight = %v, want false", rec.FaultLight)
	}
}

func TestClient_Light(t *testing.T) {
	d := newFakeDevice(t)
	c := connect(t, d, time.Second)
	ctx := context.Background()

	on, err := miner.SetLight(ctx, c, miner.LightToggle)
	if err != nil || !on {
		t.Fatalf("toggle = %v, %v; want true", on, err)
	}
	if on, err := c.CheckLight(ctx); err != nil || !on {
		t.Errorf("CheckLight() = %v, %v; want true", on, err)
	}

	d.mu.Lock()
	d.refuse = true
	d.mu.Unlock()

	if _, err := miner.SetLight(ctx, c, miner.LightOff); !errors.Is(err, miner.ErrDeactivationFailed) {
		t.Errorf("off on refusing device error = %v", err)
	}
	if on, err := miner.SetLight(ctx, c, miner.LightToggle); err != nil || !on {
		t.Errorf("refused toggle = %v, %v; want unchanged true", on, err)
	}
}

func TestClient_HostnameAndModel(t *testing.T) {
	d := newFakeDevice(t)
	c := connect(t, d, time.Second)
	ctx := context.Background()

	if h, err := c.Hostname(ctx); err != nil || h != "rack1-s19" {
		t.Errorf("Hostname() = %q, %v", h, err)
	}
	if m, err := c.Model(ctx); err != nil || m != "Antminer S19" {
		t.Errorf("Model() = %q, %v", m, err)
	}
}

func TestFactory_NoDevice(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	_, err = NewFactory(port, time.Second).Connect(context.Background(), "127.0.0.1")
	if !errors.Is(err, miner.ErrNoDevice) {
		t.Errorf("Connect() error = %v, want ErrNoDevice", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	d := newFakeDevice(t)
	d.mu.Lock()
	d.silent = true
	d.mu.Unlock()
	c := connect(t, d, 50*time.Millisecond)

	start := time.Now()
	if _, err := c.Telemetry(context.Background()); err == nil {
		t.Fatal("Telemetry() on a silent device should fail")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Telemetry() took %v, timeout not applied", elapsed)
	}
}

func TestDecodeReply(t *testing.T) {
	if _, err := decodeReply("stats", []byte("\x00")); !errors.Is(err, ErrBadResponse) {
		t.Errorf("empty reply error = %v", err)
	}
	if _, err := decodeReply("stats", []byte("{not json")); !errors.Is(err, ErrBadResponse) {
		t.Errorf("garbage reply error = %v", err)
	}
	r, err := decodeReply("ascset", []byte(`{"STATUS":[{"STATUS":"E","Msg":"no"}]}`+"\x00"))
	if err != nil || r.ok() || r.message() != "no" {
		t.Errorf("error status reply = %+v, %v", r, err)
	}
}
