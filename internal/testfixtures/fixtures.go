package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/deepshift/mineshift/internal/application"
)

var (
	equipmentCounter uint64
	workerCounter    uint64
)

var referenceTime = time.Date(2025, time.March, 10, 8, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// String returns a pointer to v.
func String(v string) *string {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// --------------------------- Equipment fixtures ---------------------------

// Equipment returns an equipment check with a deterministic id. Photos are
// attached as given; pass none to produce an item without photos.
func Equipment(condition application.EquipmentCondition, photos ...string) application.EquipmentCheck {
	idx := atomic.AddUint64(&equipmentCounter, 1)
	if photos == nil {
		photos = []string{}
	}
	return application.EquipmentCheck{
		ID:        fmt.Sprintf("eq-%03d", idx),
		Name:      fmt.Sprintf("Equipment %03d", idx),
		Condition: condition,
		Photos:    photos,
	}
}

// ------------------------------ Shift fixtures ------------------------------

// ShiftOption configures a shift input.
type ShiftOption func(*application.ShiftInput)

// NewShiftInput returns a shift input that passes the submission gate.
func NewShiftInput(opts ...ShiftOption) application.ShiftInput {
	input := application.ShiftInput{
		WorkerID:          application.DemoWorkerID,
		Date:              referenceTime.Format("2006-01-02"),
		ShiftType:         application.ShiftMorning,
		Area:              "Panel 3 North",
		Equipment:         []application.EquipmentCheck{Equipment(application.ConditionOperational)},
		GasCH4:            Float(0.5),
		VentilationStatus: "adequate",
		PPEChecklist:      []application.PPEItem{{Item: "Helmet", Checked: true}},
		TasksDone:         "Roof bolting",
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithoutGas clears the gas reading.
func WithoutGas() ShiftOption {
	return func(input *application.ShiftInput) {
		input.GasCH4 = nil
	}
}

// WithShiftStatus overrides the initial status.
func WithShiftStatus(status application.ShiftStatus) ShiftOption {
	return func(input *application.ShiftInput) {
		input.Status = status
	}
}

// WithShiftEquipment replaces the equipment list.
func WithShiftEquipment(items ...application.EquipmentCheck) ShiftOption {
	return func(input *application.ShiftInput) {
		input.Equipment = items
	}
}

// --------------------------- Section report fixtures ---------------------------

// ReportOption configures a section report input.
type ReportOption func(*application.SectionReportInput)

// NewSectionReportInput returns a report input that passes the submission
// gate with no warnings.
func NewSectionReportInput(opts ...ReportOption) application.SectionReportInput {
	input := application.SectionReportInput{
		Section:           "Section A",
		ForemanID:         application.DemoForemanID,
		Date:              referenceTime.Format("2006-01-02"),
		ShiftType:         application.ShiftMorning,
		Equipment:         []application.EquipmentCheck{Equipment(application.ConditionOperational)},
		GasCH4:            Float(0.6),
		VentilationStatus: "adequate",
		TotalWorkers:      Int(4),
		PresentCount:      Int(3),
		AbsentCount:       Int(1),
		TardyCount:        Int(0),
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

// WithoutReportGas clears the gas reading.
func WithoutReportGas() ReportOption {
	return func(input *application.SectionReportInput) {
		input.GasCH4 = nil
	}
}

// WithReportEquipment replaces the equipment list.
func WithReportEquipment(items ...application.EquipmentCheck) ReportOption {
	return func(input *application.SectionReportInput) {
		input.Equipment = items
	}
}

// ----------------------------- Worker fixtures -----------------------------

// WorkerOption configures a roster entry.
type WorkerOption func(*application.Worker)

// NewWorker returns a roster entry with a deterministic id and employee id.
func NewWorker(opts ...WorkerOption) application.Worker {
	idx := atomic.AddUint64(&workerCounter, 1)
	worker := application.Worker{
		ID:         fmt.Sprintf("worker-%03d", idx),
		Name:       fmt.Sprintf("Worker %03d", idx),
		EmployeeID: fmt.Sprintf("EMP-%04d", 5000+idx),
		Section:    "Section A",
		Role:       "miner",
	}
	for _, opt := range opts {
		opt(&worker)
	}
	return worker
}

// WithWorkerID overrides the generated id.
func WithWorkerID(id string) WorkerOption {
	return func(w *application.Worker) {
		w.ID = id
	}
}

// WithSection overrides the section.
func WithSection(section string) WorkerOption {
	return func(w *application.Worker) {
		w.Section = section
	}
}

// WithAttendance sets today's attendance.
func WithAttendance(status application.AttendanceStatus) WorkerOption {
	return func(w *application.Worker) {
		w.TodayAttendance = status
	}
}
