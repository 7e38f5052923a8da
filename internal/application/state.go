package application

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/deepshift/mineshift/internal/persistence"
)

// Persisted keys, namespaced per engine.
const (
	KeyAttendance = "worker/attendance"
	KeyShifts     = "worker/shifts"
	KeyIncidents  = "worker/incidents"
	KeyRemarks    = "worker/remarks"
	KeyTasks      = "worker/tasks"
	KeySettings   = "worker/settings"
	KeyDraftShift = "worker/draft_shift"

	KeyWorkers        = "foreman/workers"
	KeySectionReports = "foreman/section_reports"
	KeyNotifications  = "foreman/notifications"
	KeyDraftReport    = "foreman/draft_report"
	KeyProfile        = "foreman/profile"
)

const dayKeyLayout = "2006-01-02"

func dayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// snapshotWriter persists engine snapshots and remembers which keys failed
// to reach the store. It is guarded by the owning engine's mutex.
type snapshotWriter struct {
	store   *persistence.LocalStore
	pending map[string]struct{}
}

func newSnapshotWriter(store *persistence.LocalStore) snapshotWriter {
	return snapshotWriter{store: store, pending: make(map[string]struct{})}
}

// write persists entries. A nil Value removes the key. Every entry is
// attempted; keys that fail are kept pending until a later write succeeds.
func (w *snapshotWriter) write(ctx context.Context, entries ...persistence.Entry) error {
	var (
		puts    []persistence.Entry
		removes []string
	)
	for _, entry := range entries {
		if entry.Value == nil {
			removes = append(removes, entry.Key)
			continue
		}
		puts = append(puts, entry)
	}

	var errs []error
	failed := make(map[string]bool)

	switch len(puts) {
	case 0:
	case 1:
		if err := w.store.Set(ctx, puts[0].Key, puts[0].Value); err != nil {
			failed[puts[0].Key] = true
			errs = append(errs, err)
		}
	default:
		if err := w.store.SetMany(ctx, puts); err != nil {
			var wErr *persistence.WriteError
			if errors.As(err, &wErr) {
				for _, key := range wErr.Keys() {
					failed[key] = true
				}
			} else {
				for _, entry := range puts {
					failed[entry.Key] = true
				}
			}
			errs = append(errs, err)
		}
	}
	for _, key := range removes {
		if err := w.store.Remove(ctx, key); err != nil {
			failed[key] = true
			errs = append(errs, err)
		}
	}

	for _, entry := range entries {
		if failed[entry.Key] {
			w.pending[entry.Key] = struct{}{}
		} else {
			delete(w.pending, entry.Key)
		}
	}
	return errors.Join(errs...)
}

func (w *snapshotWriter) pendingKeys() []string {
	keys := make([]string, 0, len(w.pending))
	for key := range w.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (w *snapshotWriter) reset() {
	w.pending = make(map[string]struct{})
}

// shiftTransitions lists the allowed status changes of a shift record.
var shiftTransitions = map[ShiftStatus][]ShiftStatus{
	ShiftStatusDraft:     {ShiftStatusSubmitted},
	ShiftStatusSubmitted: {ShiftStatusReopened, ShiftStatusAcknowledged},
	ShiftStatusReopened:  {ShiftStatusSubmitted, ShiftStatusAcknowledged},
}

// reportTransitions lists the allowed status changes of a section report.
var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusDraft:    {ReportStatusPending},
	ReportStatusPending:  {ReportStatusReopened, ReportStatusAcknowledged},
	ReportStatusReopened: {ReportStatusPending, ReportStatusAcknowledged},
}

func canTransition[S comparable](table map[S][]S, from, to S) bool {
	return slices.Contains(table[from], to)
}

func indexByID[T any](items []T, id string, key func(T) string) int {
	return slices.IndexFunc(items, func(item T) bool { return key(item) == id })
}

// replaceAt returns a copy of items with the element at i replaced.
func replaceAt[T any](items []T, i int, item T) []T {
	out := slices.Clone(items)
	out[i] = item
	return out
}

// appendCopy returns a copy of items with more appended; items is untouched.
func appendCopy[T any](items []T, more ...T) []T {
	out := make([]T, 0, len(items)+len(more))
	out = append(out, items...)
	return append(out, more...)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// clonePtr copies the value behind p so callers cannot reach engine state.
func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAttendance(a AttendanceRecord) AttendanceRecord {
	a.ConfirmedAt = clonePtr(a.ConfirmedAt)
	return a
}

func cloneShift(s ShiftRecord) ShiftRecord {
	s.Equipment = cloneEquipment(s.Equipment)
	s.GasCH4 = clonePtr(s.GasCH4)
	s.PPEChecklist = slices.Clone(s.PPEChecklist)
	s.IncidentIDs = slices.Clone(s.IncidentIDs)
	s.AuditLog = slices.Clone(s.AuditLog)
	s.SubmittedAt = clonePtr(s.SubmittedAt)
	return s
}

func cloneShiftPatch(p ShiftPatch) ShiftPatch {
	p.Date = clonePtr(p.Date)
	p.ShiftType = clonePtr(p.ShiftType)
	p.Area = clonePtr(p.Area)
	p.Equipment = cloneEquipment(p.Equipment)
	p.GasCH4 = clonePtr(p.GasCH4)
	p.VentilationStatus = clonePtr(p.VentilationStatus)
	p.PPEChecklist = slices.Clone(p.PPEChecklist)
	p.TasksDone = clonePtr(p.TasksDone)
	p.IncidentIDs = slices.Clone(p.IncidentIDs)
	return p
}

func cloneReport(r SectionReport) SectionReport {
	r.Equipment = cloneEquipment(r.Equipment)
	r.GasCH4 = clonePtr(r.GasCH4)
	r.TotalWorkers = clonePtr(r.TotalWorkers)
	r.PresentCount = clonePtr(r.PresentCount)
	r.AbsentCount = clonePtr(r.AbsentCount)
	r.TardyCount = clonePtr(r.TardyCount)
	r.ValidationErrors = slices.Clone(r.ValidationErrors)
	r.ValidationWarnings = slices.Clone(r.ValidationWarnings)
	r.AuditLog = slices.Clone(r.AuditLog)
	r.LastSavedAt = clonePtr(r.LastSavedAt)
	r.SubmittedAt = clonePtr(r.SubmittedAt)
	return r
}

func cloneReportPatch(p ReportPatch) ReportPatch {
	p.Section = clonePtr(p.Section)
	p.Date = clonePtr(p.Date)
	p.ShiftType = clonePtr(p.ShiftType)
	p.Equipment = cloneEquipment(p.Equipment)
	p.GasCH4 = clonePtr(p.GasCH4)
	p.VentilationStatus = clonePtr(p.VentilationStatus)
	p.TotalWorkers = clonePtr(p.TotalWorkers)
	p.PresentCount = clonePtr(p.PresentCount)
	p.AbsentCount = clonePtr(p.AbsentCount)
	p.TardyCount = clonePtr(p.TardyCount)
	p.Remarks = clonePtr(p.Remarks)
	return p
}

func cloneIncident(i IncidentRecord) IncidentRecord {
	i.Photos = slices.Clone(i.Photos)
	return i
}

func cloneRemark(r RemarkRecord) RemarkRecord {
	r.LinkedEntity = clonePtr(r.LinkedEntity)
	return r
}

func cloneTask(t TaskRecord) TaskRecord {
	t.AssignedTo = slices.Clone(t.AssignedTo)
	t.CompletedAt = clonePtr(t.CompletedAt)
	return t
}

func cloneWorker(w Worker) Worker {
	w.AttendanceMarkedAt = clonePtr(w.AttendanceMarkedAt)
	w.LastActivityAt = clonePtr(w.LastActivityAt)
	return w
}

func cloneNotification(n Notification) Notification {
	n.LinkedEntity = clonePtr(n.LinkedEntity)
	return n
}

func cloneEquipment(items []EquipmentCheck) []EquipmentCheck {
	if items == nil {
		return nil
	}
	out := make([]EquipmentCheck, len(items))
	for i, item := range items {
		item.Photos = slices.Clone(item.Photos)
		out[i] = item
	}
	return out
}

func mapSlice[T any](items []T, fn func(T) T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
