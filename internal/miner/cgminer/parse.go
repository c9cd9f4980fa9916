package cgminer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nerrad567/minergate/internal/telemetry"
)

// maxChains bounds the chain indices probed in a stats entry. Antminer
// firmwares number chains from 1 or from 6 depending on the control board.
const maxChains = 16

// maxFans bounds the fan indices probed in a stats entry.
const maxFans = 8

func applyVersion(rec *telemetry.Record, v map[string]any) {
	if v == nil {
		return
	}
	if s, ok := str(v, "API"); ok {
		rec.APIVersion = telemetry.Ptr(s)
	}
	for _, key := range []string{"CompileTime", "BMMiner", "CGMiner", "Miner"} {
		if s, ok := str(v, key); ok && s != "" {
			rec.FirmwareVersion = telemetry.Ptr(s)
			break
		}
	}
	if s, ok := str(v, "Type"); ok && s != "" {
		rec.Model = telemetry.Ptr(s)
		if mk, _, found := strings.Cut(s, " "); found {
			rec.Make = telemetry.Ptr(mk)
		}
	}
}

func applySummary(rec *telemetry.Record, summary []map[string]any) {
	if len(summary) == 0 {
		return
	}
	s := summary[0]
	for _, key := range []string{"GHS 5s", "GHS av"} {
		if v, ok := num(s, key); ok {
			rec.Hashrate = telemetry.Ptr(round2(v / 1000))
			return
		}
	}
	for _, key := range []string{"MHS 5s", "MHS av"} {
		if v, ok := num(s, key); ok {
			rec.Hashrate = telemetry.Ptr(round2(v / 1e6))
			return
		}
	}
}

func applyStats(rec *telemetry.Record, stats []map[string]any) {
	s := mergeEntries(stats)

	board := 0
	for i := 1; i <= maxChains && board < len(rec.Boards); i++ {
		rate, hasRate := num(s, fmt.Sprintf("chain_rate%d", i))
		chips, hasChips := num(s, fmt.Sprintf("chain_acn%d", i))
		if !hasRate && !hasChips {
			continue
		}
		b := &rec.Boards[board]
		if hasRate {
			b.Hashrate = telemetry.Ptr(round2(rate / 1000))
		}
		if hasChips {
			b.Chips = telemetry.Ptr(int(chips))
			if chips == 0 {
				rec.Errors = append(rec.Errors, fmt.Sprintf("chain %d reports no chips", i))
			}
		}
		if t, ok := maxTemp(s, fmt.Sprintf("temp_pcb%d", i), fmt.Sprintf("temp%d", i)); ok {
			b.Temp = telemetry.Ptr(t)
		}
		if t, ok := maxTemp(s, fmt.Sprintf("temp_chip%d", i), fmt.Sprintf("temp2_%d", i)); ok {
			b.ChipTemp = telemetry.Ptr(t)
		}
		board++
	}

	slot := 0
	for i := 1; i <= maxFans && slot < len(rec.Fans); i++ {
		if rpm, ok := num(s, fmt.Sprintf("fan%d", i)); ok && rpm > 0 {
			rec.Fans[slot] = telemetry.Ptr(int(rpm))
			slot++
		}
	}

	if v, ok := num(s, "total_rateideal"); ok {
		rec.NominalHashrate = telemetry.Ptr(round2(v / 1000))
	}
	if v, ok := num(s, "Power"); ok {
		rec.Wattage = telemetry.Ptr(int(v))
	}
	if v, ok := num(s, "Power_Limit"); ok {
		rec.WattageLimit = telemetry.Ptr(int(v))
	}
	if v, ok := num(s, "Chip Count"); ok {
		rec.IdealChips = telemetry.Ptr(int(v))
	} else if per, ok := num(s, "miner_count"); ok && board > 0 {
		rec.IdealChips = telemetry.Ptr(int(per) * board)
	}
	if on, ok := ledState(stats); ok {
		rec.FaultLight = telemetry.Ptr(on)
	}
}

func applyPools(rec *telemetry.Record, pools []map[string]any) {
	sorted := make([]map[string]any, len(pools))
	copy(sorted, pools)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := num(sorted[i], "POOL")
		b, _ := num(sorted[j], "POOL")
		return a < b
	})

	for i := 0; i < len(sorted) && i < len(rec.Pools); i++ {
		if u, ok := str(sorted[i], "URL"); ok && u != "" {
			rec.Pools[i].URL = telemetry.Ptr(u)
		}
		if u, ok := str(sorted[i], "User"); ok && u != "" {
			rec.Pools[i].User = telemetry.Ptr(u)
		}
	}

	// Quota mode splits work across pools, reported as "50/50".
	var quotas []string
	for _, p := range sorted {
		if q, ok := num(p, "Quota"); ok {
			quotas = append(quotas, strconv.Itoa(int(q)))
		}
	}
	if len(quotas) > 1 {
		rec.PoolSplit = telemetry.Ptr(strings.Join(quotas, "/"))
	}
}

// ledState looks for the LED flag across stats entries.
func ledState(stats []map[string]any) (bool, bool) {
	for _, e := range stats {
		for _, key := range []string{"led", "LED", "Led"} {
			v, ok := e[key]
			if !ok {
				continue
			}
			switch t := v.(type) {
			case bool:
				return t, true
			case json.Number:
				n, err := t.Int64()
				return err == nil && n != 0, err == nil
			case string:
				b, err := strconv.ParseBool(t)
				if err != nil {
					return t == "on", t == "on" || t == "off"
				}
				return b, true
			}
		}
	}
	return false, false
}

// mergeEntries folds stats entries into one map; later entries win.
func mergeEntries(entries []map[string]any) map[string]any {
	out := make(map[string]any)
	for _, e := range entries {
		for k, v := range e {
			out[k] = v
		}
	}
	return out
}

func str(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}

// num reads key as a number, accepting numeric strings.
func num(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// maxTemp reads the first present key. Values like "60-62-58-59" hold one
// reading per sensor; the hottest wins.
func maxTemp(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := num(m, key); ok {
			if v <= 0 {
				return 0, false
			}
			return int(v), true
		}
		s, ok := str(m, key)
		if !ok || s == "" {
			continue
		}
		best, found := 0, false
		for _, part := range strings.Split(s, "-") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				continue
			}
			if !found || n > best {
				best, found = n, true
			}
		}
		if found && best > 0 {
			return best, true
		}
	}
	return 0, false
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
