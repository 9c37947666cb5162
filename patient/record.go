package patient

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one patient feature row. Categorical fields hold their category
// index, binary fields hold 0 or 1.
type Record struct {
	Age            float64
	Gender         float64
	Ethnicity      float64
	EducationLevel float64

	BMI              float64
	Smoking          float64
	PhysicalActivity float64
	DietQuality      float64
	SleepQuality     float64

	PollutionExposure float64
	PollenExposure    float64
	DustExposure      float64
	PetAllergy        float64

	FamilyHistoryAsthma    float64
	HistoryOfAllergies     float64
	Eczema                 float64
	HayFever               float64
	GastroesophagealReflux float64

	LungFunctionFEV1 float64
	LungFunctionFVC  float64

	Wheezing          float64
	ShortnessOfBreath float64
	ChestTightness    float64
	Coughing          float64
	NighttimeSymptoms float64
	ExerciseInduced   float64
}

// slots lists the record's fields in column order.
func (r *Record) slots() []*float64 {
	return []*float64{
		&r.Age, &r.Gender, &r.Ethnicity, &r.EducationLevel,
		&r.BMI, &r.Smoking, &r.PhysicalActivity, &r.DietQuality, &r.SleepQuality,
		&r.PollutionExposure, &r.PollenExposure, &r.DustExposure, &r.PetAllergy,
		&r.FamilyHistoryAsthma, &r.HistoryOfAllergies, &r.Eczema, &r.HayFever, &r.GastroesophagealReflux,
		&r.LungFunctionFEV1, &r.LungFunctionFVC,
		&r.Wheezing, &r.ShortnessOfBreath, &r.ChestTightness, &r.Coughing, &r.NighttimeSymptoms, &r.ExerciseInduced,
	}
}

// Defaults returns the record a freshly rendered form submits.
func Defaults() Record {
	var r Record
	for i, slot := range r.slots() {
		*slot = fields[i].Default
	}
	return r
}

// Vector returns the feature vector in column order.
func (r Record) Vector() []float64 {
	slots := r.slots()
	out := make([]float64, len(slots))
	for i, slot := range slots {
		out[i] = *slot
	}
	return out
}

// FromVector builds a record from a vector in column order.
func FromVector(vector []float64) (Record, error) {
	var r Record
	slots := r.slots()
	if len(vector) != len(slots) {
		return Record{}, fmt.Errorf("expected %d features, got %d", len(slots), len(vector))
	}
	for i, slot := range slots {
		*slot = vector[i]
	}
	return r, nil
}

// Get returns the encoded value of a column.
func (r Record) Get(name string) (float64, bool) {
	idx, ok := fieldIndex[name]
	if !ok {
		return 0, false
	}
	return *r.slots()[idx], true
}

// Set assigns the encoded value of a column after checking its range.
func (r *Record) Set(name string, v float64) error {
	idx, ok := fieldIndex[name]
	if !ok {
		return fmt.Errorf("unknown field %q", name)
	}
	f := fields[idx]
	if !f.InRange(v) {
		return fmt.Errorf("%s: %s is outside %s", name, formatFloat(v, -1), f.rangeText())
	}
	*r.slots()[idx] = v
	return nil
}

// Labels decodes the record back into the values a form displays.
func (r Record) Labels() map[string]string {
	out := make(map[string]string, len(fields))
	for i, slot := range r.slots() {
		out[fields[i].Name] = fields[i].DisplayValue(*slot)
	}
	return out
}

// MarshalJSON writes the record as an object keyed by column name, in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, slot := range r.slots() {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(fields[i].Name)
		b.Write(key)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(*slot, 'f', -1, 64))
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (f Field) rangeText() string {
	if f.Kind == KindCategorical {
		return fmt.Sprintf("[%s]", strings.Join(f.Categories, ", "))
	}
	prec := 0
	if f.Kind == KindDecimal {
		prec = 1
	}
	return fmt.Sprintf("[%s, %s]", formatFloat(f.Min, prec), formatFloat(f.Max, prec))
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// decimals is the number of fractional digits implied by a widget step.
func decimals(step float64) int {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		return len(s) - dot - 1
	}
	return 0
}
