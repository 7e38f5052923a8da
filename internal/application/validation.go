package application

import "fmt"

// ReportFields are the parts of a shift or section report the submission
// gate inspects. Nil counts are treated as not provided.
type ReportFields struct {
	Equipment         []EquipmentCheck
	GasCH4            *float64
	VentilationStatus string
	TotalWorkers      *int
	PresentCount      *int
	AbsentCount       *int
	TardyCount        *int
}

// ValidationResult is the outcome of Validate. CanSubmit is true exactly
// when Errors is empty.
type ValidationResult struct {
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	CanSubmit bool     `json:"canSubmit"`
}

const (
	msgGasRequired         = "Gas reading (CH4) is required"
	msgVentilationRequired = "Ventilation status is required"
	msgNoEquipment         = "No equipment has been checked"
)

// Validate checks a report for submission. It is deterministic and has no
// side effects.
func Validate(report ReportFields) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	if report.GasCH4 == nil {
		result.Errors = append(result.Errors, msgGasRequired)
	}
	if report.VentilationStatus == "" {
		result.Errors = append(result.Errors, msgVentilationRequired)
	}

	if len(report.Equipment) == 0 {
		result.Warnings = append(result.Warnings, msgNoEquipment)
	}

	missingPhotos := 0
	for _, item := range report.Equipment {
		if item.Condition != ConditionOperational && len(item.Photos) == 0 {
			missingPhotos++
		}
	}
	if missingPhotos > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d equipment item(s) not operational require a photo", missingPhotos))
	}

	if report.TotalWorkers != nil && report.PresentCount != nil && report.AbsentCount != nil && report.TardyCount != nil {
		sum := *report.PresentCount + *report.AbsentCount + *report.TardyCount
		if sum != *report.TotalWorkers {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"Attendance counts (present + absent + tardy = %d) do not match total workers (%d)",
				sum, *report.TotalWorkers))
		}
	}

	result.CanSubmit = len(result.Errors) == 0
	return result
}

func (r SectionReport) fields() ReportFields {
	return ReportFields{
		Equipment:         r.Equipment,
		GasCH4:            r.GasCH4,
		VentilationStatus: r.VentilationStatus,
		TotalWorkers:      r.TotalWorkers,
		PresentCount:      r.PresentCount,
		AbsentCount:       r.AbsentCount,
		TardyCount:        r.TardyCount,
	}
}

func (s ShiftRecord) fields() ReportFields {
	return ReportFields{
		Equipment:         s.Equipment,
		GasCH4:            s.GasCH4,
		VentilationStatus: s.VentilationStatus,
	}
}

// withValidation stores the outcome of Validate on the report.
func (r SectionReport) withValidation() SectionReport {
	result := Validate(r.fields())
	r.ValidationErrors = result.Errors
	r.ValidationWarnings = result.Warnings
	r.CanSubmit = result.CanSubmit
	return r
}
