package telemetry

import (
	"time"
)

// Board positions on a three-board miner.
const (
	BoardLeft = iota
	BoardCenter
	BoardRight

	boardCount
)

// fanSlots is the number of chassis fans the schema carries.
const fanSlots = 4

// Board holds the per-hashboard readings. Any value may be absent when the
// device does not report it.
type Board struct {
	Hashrate *float64 // TH/s
	Temp     *int     // board (PCB) temperature, °C
	ChipTemp *int     // hottest chip temperature, °C
	Chips    *int     // detected chip count
}

// Pool is one configured mining pool.
type Pool struct {
	URL  *string
	User *string
}

// Record is the normalised telemetry snapshot of one device.
//
// Optional values are pointers: nil means the device did not report the
// value or the value does not apply to that model. Nothing in the schema
// uses a magic number for "not applicable".
type Record struct {
	IP       string
	Datetime time.Time

	MAC             *string
	Model           *string
	Make            *string
	APIVersion      *string
	FirmwareVersion *string
	Hostname        *string

	Hashrate        *float64 // TH/s, summed over boards when not reported
	NominalHashrate *float64 // TH/s

	Boards [boardCount]Board

	TemperatureAvg *int
	EnvTemp        *int

	Wattage      *int
	WattageLimit *int

	Fans   [fanSlots]*int // RPM
	FanPSU *int           // RPM

	TotalChips   *int
	IdealChips   *int
	PercentIdeal *float64
	Nominal      *bool

	PoolSplit *string
	Pools     [2]Pool

	Errors     []string
	FaultLight *bool
	Efficiency *int // J/TH
}

// NewRecord returns an empty record for ip stamped with the current time.
func NewRecord(ip string) *Record {
	return &Record{IP: ip, Datetime: time.Now().UTC()}
}

// Get returns the value of f and whether the device reported it.
func (r *Record) Get(f Field) (any, bool) {
	if f < 0 || f >= fieldCount {
		return nil, false
	}
	return fieldDefs[f].get(r)
}

// Finalize fills derived values from the raw readings:
// hashrate (sum of boards), temperature_avg, total_chips, percent_ideal,
// nominal and efficiency. Values already set are left untouched.
func (r *Record) Finalize() {
	if r.Hashrate == nil {
		var sum float64
		var seen bool
		for _, b := range r.Boards {
			if b.Hashrate != nil {
				sum += *b.Hashrate
				seen = true
			}
		}
		if seen {
			r.Hashrate = Ptr(round2(sum))
		}
	}

	if r.TemperatureAvg == nil {
		var sum, n int
		for _, b := range r.Boards {
			if b.Temp != nil && *b.Temp > 0 {
				sum += *b.Temp
				n++
			}
		}
		if n > 0 {
			r.TemperatureAvg = Ptr(sum / n)
		}
	}

	if r.TotalChips == nil {
		var sum int
		var seen bool
		for _, b := range r.Boards {
			if b.Chips != nil {
				sum += *b.Chips
				seen = true
			}
		}
		if seen {
			r.TotalChips = Ptr(sum)
		}
	}

	if r.TotalChips != nil && r.IdealChips != nil && *r.IdealChips > 0 {
		if r.PercentIdeal == nil {
			r.PercentIdeal = Ptr(round2(float64(*r.TotalChips) / float64(*r.IdealChips) * 100))
		}
		if r.Nominal == nil {
			r.Nominal = Ptr(*r.TotalChips == *r.IdealChips)
		}
	}

	if r.Efficiency == nil && r.Wattage != nil && r.Hashrate != nil && *r.Hashrate > 0 {
		r.Efficiency = Ptr(int(float64(*r.Wattage) / *r.Hashrate))
	}
}

func (r *Record) errorList() []string {
	if r.Errors == nil {
		return []string{}
	}
	return r.Errors
}

// Ptr returns a pointer to v. It keeps record construction terse.
func Ptr[T any](v T) *T {
	return &v
}

func round2(v float64) float64 {
	const scale = 100
	if v < 0 {
		return float64(int64(v*scale-0.5)) / scale
	}
	return float64(int64(v*scale+0.5)) / scale
}
