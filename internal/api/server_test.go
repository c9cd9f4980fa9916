package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/minergate/internal/audit"
	"github.com/nerrad567/minergate/internal/bridges/fleetmqtt"
	"github.com/nerrad567/minergate/internal/fleet"
	"github.com/nerrad567/minergate/internal/infrastructure/config"
	"github.com/nerrad567/minergate/internal/infrastructure/logging"
	"github.com/nerrad567/minergate/internal/miner/sim"
	"github.com/nerrad567/minergate/internal/targets"
)

// memAudit is an in-memory audit.Repository.
type memAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
	filter  audit.Filter
}

func (m *memAudit) Create(_ context.Context, e *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memAudit) List(_ context.Context, f audit.Filter) (*audit.ListResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
	return &audit.ListResult{Entries: m.entries, Total: len(m.entries), Limit: f.Limit, Offset: f.Offset}, nil
}

type fixedStatus bool

func (f fixedStatus) IsConnected() bool { return bool(f) }

type fixedBridge fleetmqtt.Metrics

func (f fixedBridge) Metrics() fleetmqtt.Metrics { return fleetmqtt.Metrics(f) }

type testEnv struct {
	srv    *Server
	miners *sim.Fleet
	events *fleet.Dispatcher
}

func newTestEnv(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()

	miners := sim.NewFleet("10.0.0.1", "10.0.0.2")
	miners.Add(&sim.Miner{Host: "10.0.0.5", RefuseLight: true})
	miners.Add(&sim.Miner{Host: "10.0.0.6", TelemetryFails: true})
	miners.Add(&sim.Miner{Host: "10.0.0.7", LightQueryFails: true})

	events := &fleet.Dispatcher{}
	svc := fleet.NewService(miners, fleet.Config{
		MaxHosts:       256,
		DefaultTargets: targets.Spec{"10.0.0.1-2"},
		Observer:       events,
	})

	deps := Deps{
		Config: config.APIConfig{
			CORS: config.CORSConfig{AllowedOrigins: []string{"http://dashboard.local"}},
		},
		WS: config.WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  logging.Discard(),
		Fleet:   svc,
		Version: "test",
		Events:  events,
	}
	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{srv: srv, miners: miners, events: events}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.srv.buildRouter().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{Fleet: fleet.NewService(sim.NewFleet(), fleet.Config{})}); err == nil {
		t.Error("New() without logger succeeded")
	}
	if _, err := New(Deps{Logger: logging.Discard()}); err == nil {
		t.Error("New() without fleet succeeded")
	}
}

func TestNew_RegistersHub(t *testing.T) {
	env := newTestEnv(t, nil)
	if env.events.Len() != 1 {
		t.Errorf("dispatcher observers = %d, want 1", env.events.Len())
	}
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		path string
		key  string
		want string
	}{
		{"/", "msg", "Welcome to minergate"},
		{"/health", "status", "ok"},
		{"/health/", "version", "test"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			body := decode[map[string]string](t, rec)
			if body[tt.key] != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, body[tt.key], tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no X-Request-ID generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	env.srv.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		origin string
		method string
		want   string
		status int
	}{
		{"allowed", "http://dashboard.local", http.MethodGet, "http://dashboard.local", http.StatusOK},
		{"rejected", "http://evil.local", http.MethodGet, "", http.StatusOK},
		{"preflight", "http://dashboard.local", http.MethodOptions, "http://dashboard.local", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			env.srv.buildRouter().ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/10.0.0.1/bogus", "/10.0.0.1/led/on/extra"} {
		rec := env.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
		if body := decode[Error](t, rec); body.Detail == "" {
			t.Errorf("GET %s detail empty", path)
		}
	}
}

func TestGetData(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/10.0.0.1/get_data/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	body := decode[map[string]any](t, rec)
	if body["ip"] != "10.0.0.1" {
		t.Errorf("ip = %v", body["ip"])
	}
	for _, key := range []string{"hashrate", "model", "fan_1", "errors", "fault_light"} {
		if _, ok := body[key]; !ok {
			t.Errorf("record missing %q", key)
		}
	}
}

func TestViews(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		view string
		keys []string
	}{
		{"hashrate", []string{"hashrate", "left_board_hashrate", "center_board_hashrate", "right_board_hashrate"}},
		{"fans", []string{"fan_1", "fan_2"}},
		{"temps", []string{"left_board_temp", "right_board_chip_temp"}},
		{"power", []string{"wattage", "wattage_limit", "efficiency"}},
		{"chips", []string{"total_chips", "ideal_chips"}},
	}
	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/10.0.0.1/"+tt.view, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
			}
			body := decode[map[string]any](t, rec)
			for _, k := range tt.keys {
				if _, ok := body[k]; !ok {
					t.Errorf("view %s missing %q in %v", tt.view, k, body)
				}
			}
			if _, ok := body["ip"]; ok {
				t.Errorf("view %s leaked ip", tt.view)
			}
		})
	}
}

func TestHostEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/10.0.0.1/errors", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"errors":[]}` {
		t.Errorf("errors = %d %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/10.0.0.1/model", "")
	if body := decode[map[string]string](t, rec); body["model"] != "Antminer S19" {
		t.Errorf("model = %v", body)
	}

	rec = env.do(t, http.MethodGet, "/10.0.0.1/hostname", "")
	if body := decode[map[string]string](t, rec); !strings.HasPrefix(body["hostname"], "miner-") {
		t.Errorf("hostname = %v", body)
	}
}

func TestHostErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
		detail string
	}{
		{"unreachable", "/10.0.0.9/get_data", http.StatusNotFound, "No miner found at 10.0.0.9"},
		{"malformed host", "/not-a-host/model", http.StatusBadRequest, "Invalid host: not-a-host"},
		{"telemetry failure", "/10.0.0.6/hashrate", http.StatusBadGateway, "Failed to query miner at 10.0.0.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if got := decode[Error](t, rec).Detail; got != tt.detail {
				t.Errorf("detail = %q, want %q", got, tt.detail)
			}
		})
	}
}

func TestLight(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		path   string
		status int
		want   bool
		detail string
	}{
		{"on", "/10.0.0.1/led/on", http.StatusOK, true, ""},
		{"status after on", "/10.0.0.1/led/status", http.StatusOK, true, ""},
		{"toggle", "/10.0.0.1/led/toggle", http.StatusOK, false, ""},
		{"off", "/10.0.0.1/led/off/", http.StatusOK, false, ""},
		{"refused on", "/10.0.0.5/led/on", http.StatusBadRequest, false, detailActivationFailed},
		{"refused off", "/10.0.0.5/led/off", http.StatusBadRequest, false, detailDeactivateFailed},
		{"refused toggle", "/10.0.0.5/led/toggle", http.StatusOK, false, ""},
		{"bad mode", "/10.0.0.1/led/blink", http.StatusUnprocessableEntity, false, ""},
		{"unreachable", "/10.0.0.9/led/on", http.StatusNotFound, false, "No miner found at 10.0.0.9"},
		// an unreadable light state is a device failure for every mode
		{"light query fails on", "/10.0.0.7/led/on", http.StatusBadGateway, false, detailLightQueryFailed},
		{"light query fails toggle", "/10.0.0.7/led/toggle", http.StatusBadGateway, false, detailLightQueryFailed},
		{"light query fails status", "/10.0.0.7/led/status", http.StatusBadGateway, false, detailLightQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.status != http.StatusOK {
				if tt.detail != "" {
					if got := decode[Error](t, rec).Detail; got != tt.detail {
						t.Errorf("detail = %q, want %q", got, tt.detail)
					}
				}
				return
			}
			if got := decode[LightResponse](t, rec).LightStatus; got != tt.want {
				t.Errorf("light_status = %v, want %v", got, tt.want)
			}
		})
	}

	m, _ := env.miners.Miner("10.0.0.1")
	if m.Light() {
		t.Error("simulated light still on after off")
	}
}

func TestQuery(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/get_data", `{"targets":["10.0.0.1","10.0.0.2"],"data_selectors":["hashrate","model"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	data := decode[map[string]map[string]any](t, rec)
	if len(data) != 2 {
		t.Fatalf("hosts = %d, want 2", len(data))
	}
	for host, fields := range data {
		if len(fields) != 2 || fields["model"] != "Antminer S19" {
			t.Errorf("%s = %v", host, fields)
		}
		if _, ok := fields["hashrate"]; !ok {
			t.Errorf("%s missing hashrate", host)
		}
	}

	// Selector order is preserved in the output.
	if !strings.Contains(rec.Body.String(), `{"hashrate":`) {
		t.Errorf("selector order lost: %s", rec.Body)
	}
}

func TestQuery_DefaultTargets(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, body := range []string{`{}`, `{"targets":null}`} {
		rec := env.do(t, http.MethodPost, "/get_data", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", body, rec.Code)
		}
		data := decode[map[string]json.RawMessage](t, rec)
		if _, ok := data["10.0.0.1"]; !ok || len(data) != 2 {
			t.Errorf("%s: hosts = %v", body, data)
		}
	}
	connects := env.miners.Connects()

	// an explicit empty list is not the same as leaving targets out
	rec := env.do(t, http.MethodPost, "/get_data", `{"targets":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty list: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := decode[Error](t, rec).Detail; got != detailBadTargets {
		t.Errorf("empty list: detail = %q, want %q", got, detailBadTargets)
	}
	if env.miners.Connects() != connects {
		t.Errorf("empty list contacted %d devices", env.miners.Connects()-connects)
	}
}

func TestQuery_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		detail string
	}{
		{"bad target", "/get_data", `{"targets":"10.0.0.300"}`, http.StatusBadRequest, detailBadTargets},
		{"bad selector", "/get_data", `{"targets":"10.0.0.1","data_selectors":["hashrate","bogus"]}`, http.StatusBadRequest, "Bad data point: bogus"},
		{"bad body", "/get_data", `{"targets":`, http.StatusUnprocessableEntity, ""},
		{"bad include_errors", "/get_data?include_errors=maybe", `{}`, http.StatusUnprocessableEntity, "include_errors must be a boolean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.detail != "" {
				if got := decode[Error](t, rec).Detail; got != tt.detail {
					t.Errorf("detail = %q, want %q", got, tt.detail)
				}
			}
		})
	}
}

func TestQuery_IncludeErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	body := `{"targets":["10.0.0.1","10.0.0.6","10.0.0.9"]}`

	rec := env.do(t, http.MethodPost, "/get_data", body)
	plain := decode[map[string]json.RawMessage](t, rec)
	if len(plain) != 1 {
		t.Errorf("plain response hosts = %d, want 1", len(plain))
	}

	rec = env.do(t, http.MethodPost, "/get_data?include_errors=true", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decode[struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors map[string]string          `json:"errors"`
	}](t, rec)
	if len(resp.Data) != 1 {
		t.Errorf("data hosts = %d, want 1", len(resp.Data))
	}
	want := map[string]string{"10.0.0.6": "query_failed", "10.0.0.9": "unreachable"}
	for host, reason := range want {
		if resp.Errors[host] != reason {
			t.Errorf("errors[%s] = %q, want %q", host, resp.Errors[host], reason)
		}
	}
}

func TestAudit_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/audit", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAudit_List(t *testing.T) {
	repo := &memAudit{entries: []audit.Entry{{ID: "a1", Action: "light.on", EntityID: "10.0.0.1", Source: "api"}}}
	env := newTestEnv(t, func(d *Deps) { d.Audit = repo })

	rec := env.do(t, http.MethodGet, "/audit?host=10.0.0.1&source=api&action=light.on&limit=5&offset=2&since=2026-03-01T00:00:00Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	res := decode[audit.ListResult](t, rec)
	if res.Total != 1 || res.Entries[0].ID != "a1" {
		t.Errorf("result = %+v", res)
	}

	f := repo.filter
	wantSince := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if f.EntityID != "10.0.0.1" || f.Source != "api" || f.Action != "light.on" ||
		f.Limit != 5 || f.Offset != 2 || !f.Since.Equal(wantSince) {
		t.Errorf("filter = %+v", f)
	}

	rec = env.do(t, http.MethodGet, "/audit?since=yesterday", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad since status = %d, want 422", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.MQTT = fixedStatus(true)
		d.InfluxDB = fixedStatus(false)
	})

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m := decode[SystemMetrics](t, rec)
	if m.Version != "test" || m.Runtime.Goroutines == 0 {
		t.Errorf("metrics = %+v", m)
	}
	if m.MQTT == nil || !m.MQTT.Connected {
		t.Errorf("mqtt = %+v", m.MQTT)
	}
	if m.InfluxDB == nil || m.InfluxDB.Connected {
		t.Errorf("influxdb = %+v", m.InfluxDB)
	}
	if m.Database != nil {
		t.Errorf("database reported without a DB: %+v", m.Database)
	}
	if m.MQTT != nil && m.MQTT.Commands != nil {
		t.Errorf("bridge counters reported without a bridge: %+v", m.MQTT)
	}
}

func TestMetrics_BridgeCounters(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.MQTT = fixedStatus(true)
		d.MQTTBridge = fixedBridge{Connected: true, Published: 12, Dropped: 1, Commands: 4}
	})

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		MQTT map[string]any `json:"mqtt"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{"connected": true, "published": 12.0, "dropped": 1.0, "commands": 4.0}
	for k, v := range want {
		if body.MQTT[k] != v {
			t.Errorf("mqtt.%s = %v, want %v", k, body.MQTT[k], v)
		}
	}
}

func TestStart_AppliesTimeouts(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Config.Host = "127.0.0.1"
		d.Config.Port = 0
		d.Config.Timeouts = config.APITimeoutConfig{Read: 5, Write: 7, Idle: 9}
	})
	if err := env.srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer env.srv.Close() //nolint:errcheck // test cleanup

	hs := env.srv.server
	if hs.ReadTimeout != 5*time.Second || hs.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("read timeouts = %v/%v, want 5s", hs.ReadTimeout, hs.ReadHeaderTimeout)
	}
	if hs.WriteTimeout != 7*time.Second {
		t.Errorf("WriteTimeout = %v, want 7s", hs.WriteTimeout)
	}
	if hs.IdleTimeout != 9*time.Second {
		t.Errorf("IdleTimeout = %v, want 9s", hs.IdleTimeout)
	}
}

func TestHub_BroadcastRespectsSubscriptions(t *testing.T) {
	hub := NewHub(config.WebSocketConfig{}, logging.Discard())
	subscribed := &WSClient{hub: hub, send: make(chan []byte, 4), subscriptions: map[string]struct{}{ChannelLightChanged: {}}}
	other := &WSClient{hub: hub, send: make(chan []byte, 4), subscriptions: map[string]struct{}{}}
	hub.Register(subscribed)
	hub.Register(other)

	hub.LightChanged(context.Background(), fleet.LightEvent{Host: "10.0.0.1", ModeName: "on", State: true})

	select {
	case data := <-subscribed.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != WSTypeEvent || msg.EventType != ChannelLightChanged {
			t.Errorf("message = %+v", msg)
		}
	default:
		t.Error("subscribed client received nothing")
	}
	if len(other.send) != 0 {
		t.Error("unsubscribed client received the event")
	}

	hub.Unregister(other)
	hub.Unregister(other) // second call must not close twice
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestWebSocket_LightEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.buildRouter())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	read := func() WSMessage {
		t.Helper()
		//nolint:errcheck // Test deadline
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return msg
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypeSubscribe, ID: "s1", Payload: WSSubscribePayload{Channels: []string{ChannelLightChanged}}}); err != nil {
		t.Fatal(err)
	}
	if msg := read(); msg.Type != WSTypeResponse || msg.ID != "s1" {
		t.Fatalf("subscribe reply = %+v", msg)
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatal(err)
	}
	if msg := read(); msg.Type != WSTypePong || msg.ID != "p1" {
		t.Fatalf("ping reply = %+v", msg)
	}

	resp, err := http.Get(ts.URL + "/10.0.0.2/led/on")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	msg := read()
	if msg.Type != WSTypeEvent || msg.EventType != ChannelLightChanged {
		t.Fatalf("event = %+v", msg)
	}
	payload, _ := msg.Payload.(map[string]any)
	if payload["host"] != "10.0.0.2" || payload["mode"] != "on" || payload["source"] != "api" || payload["light_status"] != true {
		t.Errorf("payload = %v", payload)
	}
	if id, _ := payload["request_id"].(string); id == "" {
		t.Error("event carries no request_id")
	}
}
