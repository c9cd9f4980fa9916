package telemetry

import "fmt"

// View is a fixed-shape subset of the schema served by the narrow read
// endpoints. Absent values are left out, except for the Required fields
// which are always emitted (nil when absent).
type View struct {
	Name     string
	Fields   []Field
	Required []Field
}

// Predefined views.
var (
	HashrateView = View{
		Name:     "hashrate",
		Fields:   []Field{FieldHashrate, FieldLeftBoardHashrate, FieldCenterBoardHashrate, FieldRightBoardHashrate},
		Required: []Field{FieldHashrate, FieldLeftBoardHashrate, FieldCenterBoardHashrate, FieldRightBoardHashrate},
	}
	FansView = View{
		Name:     "fans",
		Fields:   []Field{FieldFan1, FieldFan2, FieldFan3, FieldFan4, FieldFanPSU},
		Required: []Field{FieldFan1, FieldFan2},
	}
	TempsView = View{
		Name: "temps",
		Fields: []Field{
			FieldLeftBoardTemp, FieldLeftBoardChipTemp,
			FieldCenterBoardTemp, FieldCenterBoardChipTemp,
			FieldRightBoardTemp, FieldRightBoardChipTemp,
			FieldEnvTemp,
		},
	}
	PowerView = View{
		Name:   "power",
		Fields: []Field{FieldWattage, FieldWattageLimit, FieldEfficiency},
	}
	ChipsView = View{
		Name:     "chips",
		Fields:   []Field{FieldLeftChips, FieldCenterChips, FieldRightChips, FieldTotalChips, FieldIdealChips},
		Required: []Field{FieldLeftChips, FieldCenterChips, FieldRightChips, FieldTotalChips, FieldIdealChips},
	}
)

var viewsByName = map[string]View{
	HashrateView.Name: HashrateView,
	FansView.Name:     FansView,
	TempsView.Name:    TempsView,
	PowerView.Name:    PowerView,
	ChipsView.Name:    ChipsView,
}

// LookupView returns the predefined view called name.
func LookupView(name string) (View, error) {
	v, ok := viewsByName[name]
	if !ok {
		return View{}, fmt.Errorf("telemetry: unknown view %q", name)
	}
	return v, nil
}

// Apply projects r through the view.
func (v View) Apply(r *Record) Projection {
	out := make(Projection, 0, len(v.Fields))
	for _, f := range v.Fields {
		val, ok := r.Get(f)
		if !ok && !v.required(f) {
			continue
		}
		out = append(out, Entry{Name: f.String(), Value: val})
	}
	return out
}

func (v View) required(f Field) bool {
	for _, r := range v.Required {
		if r == f {
			return true
		}
	}
	return false
}
