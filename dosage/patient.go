package dosage

// Patient is the normalized input of one calculation pass
type Patient struct {
	WeightKg float64 `json:"weight_kg"`
	AgeYears float64 `json:"age_years"`
}

// ComputePatient is Compute for a validated patient
func (c *Calculator) ComputePatient(p Patient) Results {
	return c.Compute(p.WeightKg, p.AgeYears)
}
