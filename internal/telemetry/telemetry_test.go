package telemetry

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleRecord() *Record {
	r := &Record{
		IP:       "10.0.0.1",
		Datetime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Model:    Ptr("S19"),
		Wattage:  Ptr(3250),
	}
	r.Boards[BoardLeft] = Board{Hashrate: Ptr(31.5), Temp: Ptr(60), Chips: Ptr(76)}
	r.Boards[BoardCenter] = Board{Hashrate: Ptr(32.0), Temp: Ptr(62), Chips: Ptr(76)}
	r.Boards[BoardRight] = Board{Hashrate: Ptr(31.6), Temp: Ptr(64), Chips: Ptr(74)}
	r.IdealChips = Ptr(228)
	r.Fans[0] = Ptr(5400)
	r.Fans[2] = Ptr(5500)
	return r
}

func TestFieldNamesRoundTrip(t *testing.T) {
	names := FieldNames()
	if len(names) != int(fieldCount) {
		t.Fatalf("FieldNames() len = %d, want %d", len(names), fieldCount)
	}
	for i, name := range names {
		f, ok := ParseField(name)
		if !ok {
			t.Fatalf("ParseField(%q) not found", name)
		}
		if int(f) != i {
			t.Errorf("ParseField(%q) = %d, want %d", name, f, i)
		}
	}
	if _, ok := ParseField("bogus"); ok {
		t.Error("ParseField(bogus) should fail")
	}
	if names[0] != "ip" || names[len(names)-1] != "efficiency" {
		t.Errorf("unexpected canonical order: first=%s last=%s", names[0], names[len(names)-1])
	}
}

func TestFinalize(t *testing.T) {
	r := sampleRecord()
	r.Finalize()

	if r.Hashrate == nil || *r.Hashrate != 95.1 {
		t.Errorf("Hashrate = %v, want 95.1", r.Hashrate)
	}
	if r.TemperatureAvg == nil || *r.TemperatureAvg != 62 {
		t.Errorf("TemperatureAvg = %v, want 62", r.TemperatureAvg)
	}
	if r.TotalChips == nil || *r.TotalChips != 226 {
		t.Errorf("TotalChips = %v, want 226", r.TotalChips)
	}
	if r.Nominal == nil || *r.Nominal {
		t.Errorf("Nominal = %v, want false", r.Nominal)
	}
	if r.PercentIdeal == nil || *r.PercentIdeal != 99.12 {
		t.Errorf("PercentIdeal = %v, want 99.12", r.PercentIdeal)
	}
	if r.Efficiency == nil || *r.Efficiency != 34 {
		t.Errorf("Efficiency = %v, want 34", r.Efficiency)
	}
}

func TestFinalize_KeepsReportedValues(t *testing.T) {
	r := sampleRecord()
	r.Hashrate = Ptr(100.0)
	r.Finalize()
	if *r.Hashrate != 100.0 {
		t.Errorf("Hashrate = %v, want reported 100", *r.Hashrate)
	}
}

func TestFinalize_EmptyRecord(t *testing.T) {
	r := NewRecord("10.0.0.2")
	r.Finalize()
	if r.Hashrate != nil || r.TotalChips != nil || r.Efficiency != nil || r.Nominal != nil {
		t.Error("Finalize() invented values for an empty record")
	}
}

func TestProject_Selector(t *testing.T) {
	r := sampleRecord()
	r.Finalize()

	p, err := Project(r, []string{"wattage", "ip", "hostname"})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"wattage", "ip", "hostname"}) {
		t.Errorf("Names() = %v", got)
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"wattage":3250,"ip":"10.0.0.1","hostname":null}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestProject_DuplicateNames(t *testing.T) {
	r := sampleRecord()
	r.Finalize()

	p, err := Project(r, []string{"ip", "wattage", "ip", "wattage", "model"})
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"ip", "wattage", "model"}) {
		t.Errorf("Names() = %v, want first occurrences only", got)
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"ip":"10.0.0.1","wattage":3250,"model":"S19"}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestProject_AllNamesMatchesEmptySelector(t *testing.T) {
	r := sampleRecord()
	r.Finalize()

	full, err := Project(r, nil)
	if err != nil {
		t.Fatalf("Project(nil) error = %v", err)
	}
	named, err := Project(r, FieldNames())
	if err != nil {
		t.Fatalf("Project(FieldNames()) error = %v", err)
	}
	if !reflect.DeepEqual(named, full) {
		t.Errorf("explicit full selector differs from empty selector:\n%v\n%v", named, full)
	}

	a, _ := json.Marshal(full)
	b, _ := json.Marshal(named)
	if string(a) != string(b) {
		t.Errorf("JSON differs:\n%s\n%s", a, b)
	}
}

func TestProject_UnknownField(t *testing.T) {
	_, err := Project(sampleRecord(), []string{"hashrate", "bogus", "also_bogus"})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Project() error = %v, want ErrUnknownField", err)
	}
	var ufe *UnknownFieldError
	if !errors.As(err, &ufe) || ufe.Name != "bogus" {
		t.Errorf("UnknownFieldError = %+v, want first bad name", ufe)
	}
}

func TestProject_FullRecord(t *testing.T) {
	p, err := Project(sampleRecord(), nil)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !reflect.DeepEqual(p.Names(), FieldNames()) {
		t.Errorf("full projection does not follow canonical order")
	}
	if v, ok := p.Get("errors"); !ok || v == nil {
		t.Errorf("errors = %v, want empty list", v)
	}

	data, err := json.Marshal(sampleRecord())
	if err != nil {
		t.Fatalf("Marshal(record) error = %v", err)
	}
	if !strings.HasPrefix(string(data), `{"ip":"10.0.0.1","datetime":`) {
		t.Errorf("record JSON does not start with ip/datetime: %s", data)
	}
	if !strings.Contains(string(data), `"errors":[]`) {
		t.Errorf("record JSON missing empty errors list: %s", data)
	}
}

func TestViews(t *testing.T) {
	r := sampleRecord()
	r.Finalize()

	tests := []struct {
		view View
		want string
	}{
		{HashrateView, `{"hashrate":95.1,"left_board_hashrate":31.5,"center_board_hashrate":32,"right_board_hashrate":31.6}`},
		{FansView, `{"fan_1":5400,"fan_2":null,"fan_3":5500}`},
		{TempsView, `{"left_board_temp":60,"center_board_temp":62,"right_board_temp":64}`},
		{PowerView, `{"wattage":3250,"efficiency":34}`},
		{ChipsView, `{"left_chips":76,"center_chips":76,"right_chips":74,"total_chips":226,"ideal_chips":228}`},
	}

	for _, tt := range tests {
		t.Run(tt.view.Name, func(t *testing.T) {
			data, err := json.Marshal(tt.view.Apply(r))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("%s view = %s, want %s", tt.view.Name, data, tt.want)
			}
		})
	}
}

func TestViews_RequiredOnEmptyRecord(t *testing.T) {
	data, err := json.Marshal(ChipsView.Apply(NewRecord("10.0.0.3")))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"left_chips":null,"center_chips":null,"right_chips":null,"total_chips":null,"ideal_chips":null}`
	if string(data) != want {
		t.Errorf("chips view = %s, want %s", data, want)
	}
}

func TestViews_MissingBoardKeepsKey(t *testing.T) {
	r := sampleRecord()
	r.Boards[BoardCenter] = Board{}
	r.Finalize()

	tests := []struct {
		view View
		want string
	}{
		{HashrateView, `{"hashrate":63.1,"left_board_hashrate":31.5,"center_board_hashrate":null,"right_board_hashrate":31.6}`},
		{ChipsView, `{"left_chips":76,"center_chips":null,"right_chips":74,"total_chips":150,"ideal_chips":228}`},
	}
	for _, tt := range tests {
		t.Run(tt.view.Name, func(t *testing.T) {
			data, err := json.Marshal(tt.view.Apply(r))
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("%s view = %s, want %s", tt.view.Name, data, tt.want)
			}
		})
	}
}

func TestLookupView(t *testing.T) {
	if v, err := LookupView("fans"); err != nil || v.Name != "fans" {
		t.Errorf("LookupView(fans) = %v, %v", v.Name, err)
	}
	if _, err := LookupView("voltage"); err == nil {
		t.Error("LookupView(voltage) should fail")
	}
}
