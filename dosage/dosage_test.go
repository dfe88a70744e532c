package dosage

import (
	"testing"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/infusion"
)

func ptr[T any](v T) *T { return &v }

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	loaded, err := catalog.LoadDefault()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}
	return loaded.Catalog
}

func TestPerKg(t *testing.T) {
	atropine := catalog.PerKgDose{Low: 0.02, Unit: "mg", MinDose: 0.1, MaxDose: 0.5}
	fentanyl := catalog.PerKgDose{Low: 1, High: 2, Unit: "mcg", MaxDose: 100, Precision: ptr(int32(0))}
	joules := catalog.PerKgDose{Low: 2, Unit: "J", Precision: ptr(int32(0))}

	tests := []struct {
		name   string
		dose   catalog.PerKgDose
		weight float64
		want   string
	}{
		{"scaled", atropine, 10, "0.2 mg"},
		{"clamped to minimum", atropine, 3, "0.1 mg"},
		{"clamped to maximum", atropine, 40, "0.5 mg"},
		{"range", fentanyl, 10, "10-20 mcg"},
		{"range high end clamped", fentanyl, 70, "70-100 mcg"},
		{"range collapses when both ends clamp", fentanyl, 120, "100 mcg"},
		{"zero precision rounds", joules, 3.3, "7 J"},
		{"trailing zeros dropped", catalog.PerKgDose{Low: 0.1, Unit: "mg"}, 20, "2 mg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PerKg(tt.dose, tt.weight); got != tt.want {
				t.Errorf("PerKg(%+v, %v) = %q, want %q", tt.dose, tt.weight, got, tt.want)
			}
		})
	}
}

func TestByAge(t *testing.T) {
	ett := []catalog.AgeBracket{
		{BelowYears: ptr(1.0), Text: "3.5 mm"},
		{Linear: &catalog.LinearDose{PerYear: 0.25, Base: 4, RoundTo: 0.5, Max: 8, Unit: "mm"}},
	}

	tests := []struct {
		name string
		age  float64
		want string
	}{
		{"infant bracket", 0.5, "3.5 mm"},
		{"bracket bound is exclusive", 1, "4.5 mm"},
		{"linear exact", 2, "4.5 mm"},
		{"linear rounded to half", 3, "5 mm"},
		{"linear capped", 20, "8 mm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ByAge(ett, tt.age); got != tt.want {
				t.Errorf("ByAge(age=%v) = %q, want %q", tt.age, got, tt.want)
			}
		})
	}
}

func TestByAge_TextBrackets(t *testing.T) {
	blades := []catalog.AgeBracket{
		{BelowYears: ptr(1.0), Text: "Miller 1"},
		{BelowYears: ptr(8.0), Text: "Mac 2"},
		{Text: "Mac 3"},
	}

	for age, want := range map[float64]string{0: "Miller 1", 0.99: "Miller 1", 5: "Mac 2", 8: "Mac 3", 16: "Mac 3"} {
		if got := ByAge(blades, age); got != want {
			t.Errorf("ByAge(age=%v) = %q, want %q", age, got, want)
		}
	}
}

func TestByWeight(t *testing.T) {
	lma := []catalog.WeightBracket{
		{BelowKg: ptr(5.0), Text: "Size 1"},
		{BelowKg: ptr(10.0), Text: "Size 1.5"},
		{Text: "Size 2"},
	}

	for weight, want := range map[float64]string{3: "Size 1", 5: "Size 1.5", 9.9: "Size 1.5", 40: "Size 2"} {
		if got := ByWeight(lma, weight); got != want {
			t.Errorf("ByWeight(%v) = %q, want %q", weight, got, want)
		}
	}
}

func TestLinear(t *testing.T) {
	suction := catalog.LinearDose{PerYear: 0.5, Base: 8, RoundTo: 2, Max: 14, Unit: "Fr"}

	if got := Linear(suction, 3); got != "10 Fr" {
		t.Errorf("Linear(age 3) = %q, want %q", got, "10 Fr")
	}
	if got := Linear(catalog.LinearDose{PerYear: 0.75, Base: 12, Unit: "cm"}, 2); got != "13.5 cm" {
		t.Errorf("Linear without rounding = %q, want %q", got, "13.5 cm")
	}
}

func TestEvaluateDose_SourcePriority(t *testing.T) {
	d := catalog.DoseSource{
		Text:  "fixed",
		PerKg: &catalog.PerKgDose{Low: 1, Unit: "mg"},
	}
	if got := EvaluateDose(d, 10, 1); got != "10 mg" {
		t.Errorf("per_kg should win over text, got %q", got)
	}
	if got := EvaluateDose(catalog.DoseSource{Text: "fixed"}, 10, 1); got != "fixed" {
		t.Errorf("text source = %q", got)
	}
}

func TestCompute_AllCategories(t *testing.T) {
	c := loadCatalog(t)

	patients := []struct{ weight, age float64 }{
		{0.1, 0}, {3.5, 0}, {10, 1}, {12.345, 2.5}, {20, 6}, {45, 13}, {70, 16}, {300, 120},
	}

	for _, p := range patients {
		results := Compute(c, p.weight, p.age)
		if len(results) != len(catalog.Categories) {
			t.Fatalf("Compute(%v, %v) returned %d categories", p.weight, p.age, len(results))
		}

		for _, id := range catalog.Categories {
			entries, ok := results[id]
			if !ok {
				t.Errorf("category %s missing", id)
				continue
			}
			cat, _ := c.Category(id)
			if len(entries) != len(cat.Medications) {
				t.Errorf("category %s: %d entries, want %d", id, len(entries), len(cat.Medications))
			}
			for _, e := range entries {
				if e.Name == "" || e.Dosage == "" {
					t.Errorf("%s: empty name or dosage: %+v", id, e)
				}
				if cat.InteractiveInfusion && e.Route == "" {
					t.Errorf("%s: infusion category entry %s has empty route", id, e.ID)
				}
			}
		}
	}
}

func TestCompute_InfusionAnnotation(t *testing.T) {
	c := loadCatalog(t)
	results := NewCalculator(c).Compute(12.345, 2)

	var dopamine *MedicationEntry
	for i, e := range results[catalog.Inotropes] {
		if e.ID == "dopamine-infusion" {
			dopamine = &results[catalog.Inotropes][i]
		}
	}
	if dopamine == nil {
		t.Fatal("dopamine-infusion missing")
	}

	if dopamine.Dosage != "12.35 kg" {
		t.Errorf("Dosage = %q, want %q", dopamine.Dosage, "12.35 kg")
	}
	if dopamine.Route != "5-20 mcg/kg/min" {
		t.Errorf("Route = %q, want %q", dopamine.Route, "5-20 mcg/kg/min")
	}
	want := infusion.Range{Min: 5, Max: 20, Unit: infusion.McgPerKgPerMinute}
	if dopamine.Infusion == nil || *dopamine.Infusion != want {
		t.Errorf("Infusion = %+v, want %+v", dopamine.Infusion, want)
	}
	if dopamine.Concentration == nil || *dopamine.Concentration != 1.6 {
		t.Errorf("Concentration = %v, want 1.6", dopamine.Concentration)
	}
	if dopamine.WeightKg != 12.345 {
		t.Errorf("WeightKg = %v", dopamine.WeightKg)
	}
}

func TestCompute_StaticEntries(t *testing.T) {
	c := loadCatalog(t)
	results := Compute(c, 10, 2)

	find := func(cat catalog.Category, id string) MedicationEntry {
		for _, e := range results[cat] {
			if e.ID == id {
				return e
			}
		}
		t.Fatalf("%s not found in %s", id, cat)
		return MedicationEntry{}
	}

	tests := []struct {
		cat  catalog.Category
		id   string
		want string
	}{
		{catalog.Emergencies, "adrenaline-arrest", "0.1 mg"},
		{catalog.Intubation, "atropine", "0.2 mg"},
		{catalog.AirwayDefib, "ett-uncuffed", "4.5 mm"},
		{catalog.AirwayDefib, "defibrillation-first", "20 J"},
		{catalog.AirwayDefib, "lma-size", "Size 2"},
		{catalog.Emergencies, "fluid-bolus", "100-200 mL"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			e := find(tt.cat, tt.id)
			if e.Dosage != tt.want {
				t.Errorf("Dosage = %q, want %q", e.Dosage, tt.want)
			}
			if e.Infusion != nil {
				t.Errorf("static entry should have no infusion range")
			}
		})
	}

	// plain entry inside an infusion category keeps its text
	h := find(catalog.Others, "hydrocortisone")
	if h.Infusion != nil || h.Dosage != "20 mg" {
		t.Errorf("hydrocortisone = %+v", h)
	}
}

func TestCompute_NilCatalog(t *testing.T) {
	results := Compute(nil, 10, 2)
	for _, id := range catalog.Categories {
		entries, ok := results[id]
		if !ok {
			t.Errorf("category %s missing", id)
		}
		if len(entries) != 0 {
			t.Errorf("category %s should be empty", id)
		}
	}
}

func TestCompute_IsDeterministic(t *testing.T) {
	c := loadCatalog(t)
	a := Compute(c, 17.3, 4.2)
	b := Compute(c, 17.3, 4.2)

	for _, id := range catalog.Categories {
		for i := range a[id] {
			if a[id][i].Dosage != b[id][i].Dosage || a[id][i].Route != b[id][i].Route {
				t.Errorf("%s[%d] differs between runs", id, i)
			}
		}
	}
}
