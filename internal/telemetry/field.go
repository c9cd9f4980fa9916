package telemetry

// Field identifies one entry of the telemetry schema.
//
// The set of fields is closed: every Field has a name, a position in the
// canonical order, and an accessor on Record. Names outside this set are
// rejected by ParseField.
type Field int

// Schema fields in canonical order.
const (
	FieldIP Field = iota
	FieldDatetime
	FieldMAC
	FieldModel
	FieldMake
	FieldAPIVersion
	FieldFirmwareVersion
	FieldHostname
	FieldHashrate
	FieldNominalHashrate
	FieldLeftBoardHashrate
	FieldCenterBoardHashrate
	FieldRightBoardHashrate
	FieldTemperatureAvg
	FieldEnvTemp
	FieldLeftBoardTemp
	FieldLeftBoardChipTemp
	FieldCenterBoardTemp
	FieldCenterBoardChipTemp
	FieldRightBoardTemp
	FieldRightBoardChipTemp
	FieldWattage
	FieldWattageLimit
	FieldFan1
	FieldFan2
	FieldFan3
	FieldFan4
	FieldFanPSU
	FieldLeftChips
	FieldCenterChips
	FieldRightChips
	FieldTotalChips
	FieldIdealChips
	FieldPercentIdeal
	FieldNominal
	FieldPoolSplit
	FieldPool1URL
	FieldPool1User
	FieldPool2URL
	FieldPool2User
	FieldErrors
	FieldFaultLight
	FieldEfficiency

	fieldCount
)

// fieldDef binds a Field to its wire name and accessor.
// get returns (nil, false) when the device did not report the value.
type fieldDef struct {
	name string
	get  func(r *Record) (any, bool)
}

var fieldDefs = [fieldCount]fieldDef{
	FieldIP:                  {"ip", func(r *Record) (any, bool) { return r.IP, true }},
	FieldDatetime:            {"datetime", func(r *Record) (any, bool) { return r.Datetime, true }},
	FieldMAC:                 {"mac", func(r *Record) (any, bool) { return opt(r.MAC) }},
	FieldModel:               {"model", func(r *Record) (any, bool) { return opt(r.Model) }},
	FieldMake:                {"make", func(r *Record) (any, bool) { return opt(r.Make) }},
	FieldAPIVersion:          {"api_ver", func(r *Record) (any, bool) { return opt(r.APIVersion) }},
	FieldFirmwareVersion:     {"fw_ver", func(r *Record) (any, bool) { return opt(r.FirmwareVersion) }},
	FieldHostname:            {"hostname", func(r *Record) (any, bool) { return opt(r.Hostname) }},
	FieldHashrate:            {"hashrate", func(r *Record) (any, bool) { return opt(r.Hashrate) }},
	FieldNominalHashrate:     {"nominal_hashrate", func(r *Record) (any, bool) { return opt(r.NominalHashrate) }},
	FieldLeftBoardHashrate:   {"left_board_hashrate", func(r *Record) (any, bool) { return opt(r.Boards[BoardLeft].Hashrate) }},
	FieldCenterBoardHashrate: {"center_board_hashrate", func(r *Record) (any, bool) { return opt(r.Boards[BoardCenter].Hashrate) }},
	FieldRightBoardHashrate:  {"right_board_hashrate", func(r *Record) (any, bool) { return opt(r.Boards[BoardRight].Hashrate) }},
	FieldTemperatureAvg:      {"temperature_avg", func(r *Record) (any, bool) { return opt(r.TemperatureAvg) }},
	FieldEnvTemp:             {"env_temp", func(r *Record) (any, bool) { return opt(r.EnvTemp) }},
	FieldLeftBoardTemp:       {"left_board_temp", func(r *Record) (any, bool) { return opt(r.Boards[BoardLeft].Temp) }},
	FieldLeftBoardChipTemp:   {"left_board_chip_temp", func(r *Record) (any, bool) { return opt(r.Boards[BoardLeft].ChipTemp) }},
	FieldCenterBoardTemp:     {"center_board_temp", func(r *Record) (any, bool) { return opt(r.Boards[BoardCenter].Temp) }},
	FieldCenterBoardChipTemp: {"center_board_chip_temp", func(r *Record) (any, bool) { return opt(r.Boards[BoardCenter].ChipTemp) }},
	FieldRightBoardTemp:      {"right_board_temp", func(r *Record) (any, bool) { return opt(r.Boards[BoardRight].Temp) }},
	FieldRightBoardChipTemp:  {"right_board_chip_temp", func(r *Record) (any, bool) { return opt(r.Boards[BoardRight].ChipTemp) }},
	FieldWattage:             {"wattage", func(r *Record) (any, bool) { return opt(r.Wattage) }},
	FieldWattageLimit:        {"wattage_limit", func(r *Record) (any, bool) { return opt(r.WattageLimit) }},
	FieldFan1:                {"fan_1", func(r *Record) (any, bool) { return opt(r.Fans[0]) }},
	FieldFan2:                {"fan_2", func(r *Record) (any, bool) { return opt(r.Fans[1]) }},
	FieldFan3:                {"fan_3", func(r *Record) (any, bool) { return opt(r.Fans[2]) }},
	FieldFan4:                {"fan_4", func(r *Record) (any, bool) { return opt(r.Fans[3]) }},
	FieldFanPSU:              {"fan_psu", func(r *Record) (any, bool) { return opt(r.FanPSU) }},
	FieldLeftChips:           {"left_chips", func(r *Record) (any, bool) { return opt(r.Boards[BoardLeft].Chips) }},
	FieldCenterChips:         {"center_chips", func(r *Record) (any, bool) { return opt(r.Boards[BoardCenter].Chips) }},
	FieldRightChips:          {"right_chips", func(r *Record) (any, bool) { return opt(r.Boards[BoardRight].Chips) }},
	FieldTotalChips:          {"total_chips", func(r *Record) (any, bool) { return opt(r.TotalChips) }},
	FieldIdealChips:          {"ideal_chips", func(r *Record) (any, bool) { return opt(r.IdealChips) }},
	FieldPercentIdeal:        {"percent_ideal", func(r *Record) (any, bool) { return opt(r.PercentIdeal) }},
	FieldNominal:             {"nominal", func(r *Record) (any, bool) { return opt(r.Nominal) }},
	FieldPoolSplit:           {"pool_split", func(r *Record) (any, bool) { return opt(r.PoolSplit) }},
	FieldPool1URL:            {"pool_1_url", func(r *Record) (any, bool) { return opt(r.Pools[0].URL) }},
	FieldPool1User:           {"pool_1_user", func(r *Record) (any, bool) { return opt(r.Pools[0].User) }},
	FieldPool2URL:            {"pool_2_url", func(r *Record) (any, bool) { return opt(r.Pools[1].URL) }},
	FieldPool2User:           {"pool_2_user", func(r *Record) (any, bool) { return opt(r.Pools[1].User) }},
	FieldErrors:              {"errors", func(r *Record) (any, bool) { return r.errorList(), true }},
	FieldFaultLight:          {"fault_light", func(r *Record) (any, bool) { return opt(r.FaultLight) }},
	FieldEfficiency:          {"efficiency", func(r *Record) (any, bool) { return opt(r.Efficiency) }},
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := Field(0); f < fieldCount; f++ {
		m[fieldDefs[f].name] = f
	}
	return m
}()

// String returns the wire name of the field.
func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldDefs[f].name
}

// ParseField looks up a field by wire name.
func ParseField(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// Fields returns every schema field in canonical order.
func Fields() []Field {
	out := make([]Field, fieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// FieldNames returns every schema field name in canonical order.
func FieldNames() []string {
	out := make([]string, fieldCount)
	for i := range out {
		out[i] = fieldDefs[i].name
	}
	return out
}

// opt turns an optional pointer into an accessor result.
func opt[T any](p *T) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}
