// Package patient describes the asthma feature record: its 26 columns, the
// widget bounds that constrain them and the encoding from human-readable
// choices to the numeric codes the classifier was trained on.
package patient

import "math"

// Kind is how a field is parsed and validated.
type Kind string

const (
	KindInteger     Kind = "integer"
	KindDecimal     Kind = "decimal"
	KindCategorical Kind = "categorical"
)

// Widget is the input control a front-end should render for a field.
type Widget string

const (
	WidgetNumber Widget = "number"
	WidgetSlider Widget = "slider"
	WidgetSelect Widget = "select"
)

// Section names, in display order.
const (
	SectionDemographic   = "Demographic Details"
	SectionLifestyle     = "Lifestyle Factors"
	SectionEnvironmental = "Environmental and Allergy Factors"
	SectionMedical       = "Medical History"
	SectionClinical      = "Clinical Measurements"
	SectionSymptoms      = "Symptoms"
)

var (
	yesNo       = []string{"No", "Yes"}
	genders     = []string{"Male", "Female"}
	ethnicities = []string{"Caucasian", "African American", "Asian", "Other"}
	educations  = []string{"None", "High School", "Bachelor's", "Higher"}
)

// Field describes one column of the feature record and its input widget.
type Field struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Section    string   `json:"section"`
	Kind       Kind     `json:"kind"`
	Widget     Widget   `json:"widget"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	Step       float64  `json:"step,omitempty"`
	Default    float64  `json:"default"`
	Categories []string `json:"categories,omitempty"`
}

// fields is the column order the model was fitted with. Do not reorder.
var fields = []Field{
	integer("Age", "Age", SectionDemographic, WidgetNumber, 5, 80, 25),
	choice("Gender", "Gender", SectionDemographic, genders),
	choice("Ethnicity", "Ethnicity", SectionDemographic, ethnicities),
	choice("EducationLevel", "Education Level", SectionDemographic, educations),

	decimal("BMI", "BMI", SectionLifestyle, WidgetNumber, 15.0, 40.0, 22.5, 0.1),
	choice("Smoking", "Smoking", SectionLifestyle, yesNo),
	integer("PhysicalActivity", "Weekly Physical Activity (hours)", SectionLifestyle, WidgetSlider, 0, 10, 3),
	integer("DietQuality", "Diet Quality", SectionLifestyle, WidgetSlider, 0, 10, 5),
	integer("SleepQuality", "Sleep Quality", SectionLifestyle, WidgetSlider, 4, 10, 6),

	integer("PollutionExposure", "Pollution Exposure", SectionEnvironmental, WidgetSlider, 0, 10, 5),
	integer("PollenExposure", "Pollen Exposure", SectionEnvironmental, WidgetSlider, 0, 10, 4),
	integer("DustExposure", "Dust Exposure", SectionEnvironmental, WidgetSlider, 0, 10, 5),
	choice("PetAllergy", "Pet Allergy", SectionEnvironmental, yesNo),

	choice("FamilyHistoryAsthma", "Family History of Asthma", SectionMedical, yesNo),
	choice("HistoryOfAllergies", "History of Allergies", SectionMedical, yesNo),
	choice("Eczema", "Eczema", SectionMedical, yesNo),
	choice("HayFever", "Hay Fever", SectionMedical, yesNo),
	choice("GastroesophagealReflux", "Gastroesophageal Reflux", SectionMedical, yesNo),

	decimal("LungFunctionFEV1", "Lung Function (FEV1 in liters)", SectionClinical, WidgetSlider, 1.0, 4.0, 3.0, 0.01),
	decimal("LungFunctionFVC", "Lung Function (FVC in liters)", SectionClinical, WidgetSlider, 1.5, 6.0, 4.0, 0.01),

	choice("Wheezing", "Wheezing", SectionSymptoms, yesNo),
	choice("ShortnessOfBreath", "Shortness of Breath", SectionSymptoms, yesNo),
	choice("ChestTightness", "Chest Tightness", SectionSymptoms, yesNo),
	choice("Coughing", "Coughing", SectionSymptoms, yesNo),
	choice("NighttimeSymptoms", "Nighttime Symptoms", SectionSymptoms, yesNo),
	choice("ExerciseInduced", "Exercise-Induced Symptoms", SectionSymptoms, yesNo),
}

var fieldIndex = func() map[string]int {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return index
}()

func integer(name, label, section string, widget Widget, min, max, def float64) Field {
	return Field{Name: name, Label: label, Section: section, Kind: KindInteger, Widget: widget, Min: min, Max: max, Step: 1, Default: def}
}

func decimal(name, label, section string, widget Widget, min, max, def, step float64) Field {
	return Field{Name: name, Label: label, Section: section, Kind: KindDecimal, Widget: widget, Min: min, Max: max, Step: step, Default: def}
}

// choice builds a categorical field. The first category is the default, as a
// select box shows its first option.
func choice(name, label, section string, categories []string) Field {
	return Field{
		Name:       name,
		Label:      label,
		Section:    section,
		Kind:       KindCategorical,
		Widget:     WidgetSelect,
		Min:        0,
		Max:        float64(len(categories) - 1),
		Step:       1,
		Default:    0,
		Categories: categories,
	}
}

// Fields returns a copy of the field definitions in column order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Columns returns the column names in the order the model expects them.
func Columns() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Lookup returns the field with the given column name.
func Lookup(name string) (Field, bool) {
	idx, ok := fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return fields[idx], true
}

// Sections returns the section names in display order.
func Sections() []string {
	return []string{
		SectionDemographic,
		SectionLifestyle,
		SectionEnvironmental,
		SectionMedical,
		SectionClinical,
		SectionSymptoms,
	}
}

// InRange reports whether v is an acceptable encoded value for the field.
func (f Field) InRange(v float64) bool {
	if math.IsNaN(v) || v < f.Min || v > f.Max {
		return false
	}
	if f.Kind != KindDecimal && v != math.Trunc(v) {
		return false
	}
	return true
}

// Clamp pulls v into the field's range.
func (f Field) Clamp(v float64) float64 {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

// DisplayValue renders an encoded value the way the form shows it.
func (f Field) DisplayValue(v float64) string {
	switch f.Kind {
	case KindCategorical:
		idx := int(v)
		if idx < 0 || idx >= len(f.Categories) {
			return ""
		}
		return f.Categories[idx]
	case KindInteger:
		return formatFloat(v, 0)
	default:
		return formatFloat(v, decimals(f.Step))
	}
}
