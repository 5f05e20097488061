package predict

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/scorecast/pkg/errors"
)

// Raw column names of the student performance dataset.
const (
	FieldGender                   = "gender"
	FieldRaceEthnicity            = "race_ethnicity"
	FieldParentalLevelOfEducation = "parental_level_of_education"
	FieldLunch                    = "lunch"
	FieldTestPreparationCourse    = "test_preparation_course"
	FieldReadingScore             = "reading_score"
	FieldWritingScore             = "writing_score"
)

// StudentData is the typed form of one prediction request. A NaN score is
// sent as missing.
type StudentData struct {
	Gender                   string
	RaceEthnicity            string
	ParentalLevelOfEducation string
	Lunch                    string
	TestPreparationCourse    string
	ReadingScore             float64
	WritingScore             float64
}

// ToFeatures converts d to the raw row consumed by Pipeline.Predict.
func (d StudentData) ToFeatures() Features {
	return Features{
		FieldGender:                   d.Gender,
		FieldRaceEthnicity:            d.RaceEthnicity,
		FieldParentalLevelOfEducation: d.ParentalLevelOfEducation,
		FieldLunch:                    d.Lunch,
		FieldTestPreparationCourse:    d.TestPreparationCourse,
		FieldReadingScore:             formatScore(d.ReadingScore),
		FieldWritingScore:             formatScore(d.WritingScore),
	}
}

func formatScore(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// rawFields lists every form field in the order they are checked.
var rawFields = []string{
	FieldGender,
	FieldRaceEthnicity,
	FieldParentalLevelOfEducation,
	FieldLunch,
	FieldTestPreparationCourse,
	FieldReadingScore,
	FieldWritingScore,
}

// ParseStudentData reads the form fields of a prediction request. Every
// field must be present; a blank value is kept as missing and imputed
// later. Blank scores become NaN; a score that is not a number is an
// invalid input.
func ParseStudentData(values url.Values) (StudentData, error) {
	for _, field := range rawFields {
		if _, ok := values[field]; !ok {
			return StudentData{}, errors.NewPredictionError(errors.PredictionInvalidInput, field, "missing field", nil)
		}
	}

	d := StudentData{
		Gender:                   strings.TrimSpace(values.Get(FieldGender)),
		RaceEthnicity:            strings.TrimSpace(values.Get(FieldRaceEthnicity)),
		ParentalLevelOfEducation: strings.TrimSpace(values.Get(FieldParentalLevelOfEducation)),
		Lunch:                    strings.TrimSpace(values.Get(FieldLunch)),
		TestPreparationCourse:    strings.TrimSpace(values.Get(FieldTestPreparationCourse)),
	}
	var err error
	if d.ReadingScore, err = parseScore(values, FieldReadingScore); err != nil {
		return StudentData{}, err
	}
	if d.WritingScore, err = parseScore(values, FieldWritingScore); err != nil {
		return StudentData{}, err
	}
	return d, nil
}

func parseScore(values url.Values, field string) (float64, error) {
	s := strings.TrimSpace(values.Get(field))
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.NewPredictionError(errors.PredictionInvalidInput, field, "score is not a number", err)
	}
	return v, nil
}
