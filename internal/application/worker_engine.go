package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/deepshift/mineshift/internal/persistence"
)

// SharedRecords is the read-only view of worker-facing records (incidents,
// tasks and remarks) offered to other roles. The worker engine is the only
// owner of these records.
type SharedRecords interface {
	Incidents() []IncidentRecord
	Tasks() []TaskRecord
	Remarks() []RemarkRecord
}

// TaskSink accepts tasks issued by another role.
type TaskSink interface {
	ImportTask(ctx context.Context, task TaskRecord) (TaskRecord, error)
}

// WorkerEngine owns the worker role's local state: attendance, shift logs,
// incidents, remarks, tasks, settings and the shift draft.
//
// Every mutation computes the new collection, persists it and commits it to
// memory. The in-memory commit happens even when persistence fails; the
// mutation then returns an error wrapping ErrNotSaved and the key stays
// pending until RetryPendingWrites or a later write of the same key succeeds.
type WorkerEngine struct {
	mu     sync.RWMutex
	writer snapshotWriter
	audit  *AuditLogger
	newID  func() string
	now    func() time.Time
	logger *slog.Logger
	sink   NotificationSink

	attendance []AttendanceRecord
	shifts     []ShiftRecord
	incidents  []IncidentRecord
	remarks    []RemarkRecord
	tasks      []TaskRecord
	settings   AppSettings
	draft      *ShiftDraft
}

var (
	_ SharedRecords = (*WorkerEngine)(nil)
	_ TaskSink      = (*WorkerEngine)(nil)
)

// NewWorkerEngine constructs an engine over store. The engine starts empty;
// call Load to read persisted state.
func NewWorkerEngine(store *persistence.LocalStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *WorkerEngine {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WorkerEngine{
		writer:   newSnapshotWriter(store),
		audit:    NewAuditLogger(idGenerator, now),
		newID:    idGenerator,
		now:      now,
		logger:   defaultLogger(logger),
		settings: defaultSettings(),
	}
}

func defaultSettings() AppSettings {
	return AppSettings{Language: "en", TooltipsShown: []string{}, NotificationsEnabled: true}
}

// SetNotificationSink routes notifications raised by worker events, such as
// incidents and shift submissions, to another engine.
func (e *WorkerEngine) SetNotificationSink(sink NotificationSink) {
	e.mu.Lock()
	e.sink = sink
	e.mu.Unlock()
}

func (e *WorkerEngine) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, e.logger, "WorkerEngine", operation, attrs...)
}

// Load replaces the in-memory state with the persisted snapshot. Absent or
// unreadable keys load as empty. Pending writes are discarded.
func (e *WorkerEngine) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store := e.writer.store

	attendance, _ := persistence.Load[[]AttendanceRecord](ctx, store, KeyAttendance)
	shifts, _ := persistence.Load[[]ShiftRecord](ctx, store, KeyShifts)
	incidents, _ := persistence.Load[[]IncidentRecord](ctx, store, KeyIncidents)
	remarks, _ := persistence.Load[[]RemarkRecord](ctx, store, KeyRemarks)
	tasks, _ := persistence.Load[[]TaskRecord](ctx, store, KeyTasks)
	settings, ok := persistence.Load[AppSettings](ctx, store, KeySettings)
	if !ok {
		settings = defaultSettings()
	}
	var draft *ShiftDraft
	if d, ok := persistence.Load[ShiftDraft](ctx, store, KeyDraftShift); ok {
		draft = &d
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if pending := e.writer.pendingKeys(); len(pending) > 0 {
		e.loggerWith(ctx, "Load").WarnContext(ctx, "discarding unsaved changes", "keys", pending)
	}
	e.writer.reset()
	e.attendance = nonNil(attendance)
	e.shifts = nonNil(shifts)
	e.incidents = nonNil(incidents)
	e.remarks = nonNil(remarks)
	e.tasks = nonNil(tasks)
	settings.TooltipsShown = nonNil(settings.TooltipsShown)
	e.settings = settings
	e.draft = draft

	e.loggerWith(ctx, "Load").DebugContext(ctx, "worker state loaded",
		"attendance", len(e.attendance),
		"shifts", len(e.shifts),
		"incidents", len(e.incidents),
		"remarks", len(e.remarks),
		"tasks", len(e.tasks),
	)
	return nil
}

// PendingWrites lists keys whose latest state has not been persisted.
func (e *WorkerEngine) PendingWrites() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.writer.pendingKeys()
}

// RetryPendingWrites persists the current snapshot of every pending key.
func (e *WorkerEngine) RetryPendingWrites(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := e.writer.pendingKeys()
	if len(keys) == 0 {
		return nil
	}
	entries := make([]persistence.Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, e.entryLocked(key))
	}
	err := e.writer.write(ctx, entries...)
	logOutcome(ctx, e.loggerWith(ctx, "RetryPendingWrites"), err, "pending writes retried", "keys", keys)
	return err
}

func (e *WorkerEngine) entryLocked(key string) persistence.Entry {
	switch key {
	case KeyAttendance:
		return persistence.Entry{Key: key, Value: e.attendance}
	case KeyShifts:
		return persistence.Entry{Key: key, Value: e.shifts}
	case KeyIncidents:
		return persistence.Entry{Key: key, Value: e.incidents}
	case KeyRemarks:
		return persistence.Entry{Key: key, Value: e.remarks}
	case KeyTasks:
		return persistence.Entry{Key: key, Value: e.tasks}
	case KeySettings:
		return persistence.Entry{Key: key, Value: e.settings}
	case KeyDraftShift:
		if e.draft == nil {
			return persistence.Entry{Key: key}
		}
		return persistence.Entry{Key: key, Value: *e.draft}
	}
	return persistence.Entry{Key: key}
}

// ----------------------------- Attendance -----------------------------

// AddAttendance records an attendance declaration. ConfirmedAt is set only
// when the worker is present and explicitly confirmed. Several records for
// the same date are accepted.
func (e *WorkerEngine) AddAttendance(ctx context.Context, input AttendanceInput) (record AttendanceRecord, err error) {
	logger := e.loggerWith(ctx, "AddAttendance", "worker_id", input.WorkerID)
	defer func() { logOutcome(ctx, logger, err, "attendance recorded", "attendance_id", record.ID) }()

	vErr := &ValidationError{}
	if !input.PresenceStatus.valid() {
		vErr.add("presenceStatus", "presence status must be present, absent or tardy")
	}
	if input.ShiftType != "" && !input.ShiftType.valid() {
		vErr.add("shiftType", "unknown shift type")
	}
	if err = vErr.errOrNil(); err != nil {
		return AttendanceRecord{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	record = AttendanceRecord{
		ID:             e.newID(),
		WorkerID:       input.WorkerID,
		Date:           input.Date,
		ShiftType:      input.ShiftType,
		Area:           strings.TrimSpace(input.Area),
		PresenceStatus: input.PresenceStatus,
		Notes:          input.Notes,
		CreatedAt:      now,
	}
	if record.Date == "" {
		record.Date = dayKey(now)
	}
	if input.Confirmed && input.PresenceStatus == PresencePresent {
		record.ConfirmedAt = timePtr(now)
	}
	if e.hasAttendanceLocked(record.Date) {
		logger.WarnContext(ctx, "attendance already recorded for date", "date", record.Date)
	}

	attendance := appendCopy(e.attendance, record)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyAttendance, Value: attendance})
	e.attendance = attendance
	return cloneAttendance(record), err
}

// Attendance returns every attendance record in insertion order.
func (e *WorkerEngine) Attendance() []AttendanceRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.attendance, cloneAttendance)
}

// TodayAttendance returns the first attendance record dated today.
func (e *WorkerEngine) TodayAttendance() (AttendanceRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	today := dayKey(e.now())
	for _, record := range e.attendance {
		if record.Date == today {
			return cloneAttendance(record), true
		}
	}
	return AttendanceRecord{}, false
}

// HasDuplicateAttendance reports whether more than one record exists for date.
func (e *WorkerEngine) HasDuplicateAttendance(date string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, record := range e.attendance {
		if record.Date == date {
			count++
		}
	}
	return count > 1
}

func (e *WorkerEngine) hasAttendanceLocked(date string) bool {
	return slices.ContainsFunc(e.attendance, func(r AttendanceRecord) bool { return r.Date == date })
}

// ------------------------------- Shifts -------------------------------

// AddShift creates a shift record with a one-entry audit trail.
func (e *WorkerEngine) AddShift(ctx context.Context, input ShiftInput) (shift ShiftRecord, err error) {
	logger := e.loggerWith(ctx, "AddShift", "worker_id", input.WorkerID)
	defer func() { logOutcome(ctx, logger, err, "shift created", "shift_id", shift.ID) }()

	status := input.Status
	if status == "" {
		status = ShiftStatusDraft
	}
	vErr := &ValidationError{}
	switch status {
	case ShiftStatusDraft, ShiftStatusSubmitted, ShiftStatusReopened, ShiftStatusAcknowledged:
	default:
		vErr.add("status", "unknown shift status")
	}
	if input.ShiftType != "" && !input.ShiftType.valid() {
		vErr.add("shiftType", "unknown shift type")
	}
	if err = vErr.errOrNil(); err != nil {
		return ShiftRecord{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	shift = ShiftRecord{
		ID:                e.newID(),
		WorkerID:          input.WorkerID,
		Date:              input.Date,
		ShiftType:         input.ShiftType,
		Area:              strings.TrimSpace(input.Area),
		Status:            status,
		Equipment:         nonNil(cloneEquipment(input.Equipment)),
		GasCH4:            clonePtr(input.GasCH4),
		VentilationStatus: input.VentilationStatus,
		PPEChecklist:      nonNil(slices.Clone(input.PPEChecklist)),
		TasksDone:         input.TasksDone,
		IncidentIDs:       []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if shift.Date == "" {
		shift.Date = dayKey(now)
	}
	if status == ShiftStatusSubmitted {
		shift.SubmittedAt = timePtr(now)
	}
	shift.AuditLog = e.audit.Append(nil, AuditCreated, input.WorkerID, "")

	shifts := appendCopy(e.shifts, shift)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyShifts, Value: shifts})
	e.shifts = shifts
	return cloneShift(shift), err
}

// UpdateShift merges patch into the shift and stamps UpdatedAt. It does not
// change the status and adds no audit entry.
func (e *WorkerEngine) UpdateShift(ctx context.Context, id string, patch ShiftPatch) (shift ShiftRecord, err error) {
	logger := e.loggerWith(ctx, "UpdateShift", "shift_id", id)
	defer func() { logOutcome(ctx, logger, err, "shift updated") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.shifts, id, func(s ShiftRecord) string { return s.ID })
	if i < 0 {
		return ShiftRecord{}, ErrNotFound
	}
	shift = applyShiftPatch(e.shifts[i], patch)
	shift.UpdatedAt = e.now()

	shifts := replaceAt(e.shifts, i, shift)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyShifts, Value: shifts})
	e.shifts = shifts
	return cloneShift(shift), err
}

func applyShiftPatch(shift ShiftRecord, patch ShiftPatch) ShiftRecord {
	shift = cloneShift(shift)
	if patch.Date != nil {
		shift.Date = *patch.Date
	}
	if patch.ShiftType != nil {
		shift.ShiftType = *patch.ShiftType
	}
	if patch.Area != nil {
		shift.Area = strings.TrimSpace(*patch.Area)
	}
	if patch.Equipment != nil {
		shift.Equipment = cloneEquipment(patch.Equipment)
	}
	if patch.GasCH4 != nil {
		reading := *patch.GasCH4
		shift.GasCH4 = &reading
	}
	if patch.VentilationStatus != nil {
		shift.VentilationStatus = *patch.VentilationStatus
	}
	if patch.PPEChecklist != nil {
		shift.PPEChecklist = slices.Clone(patch.PPEChecklist)
	}
	if patch.TasksDone != nil {
		shift.TasksDone = *patch.TasksDone
	}
	if patch.IncidentIDs != nil {
		shift.IncidentIDs = slices.Clone(patch.IncidentIDs)
	}
	return shift
}

// GetShiftByID looks up a shift.
func (e *WorkerEngine) GetShiftByID(id string) (ShiftRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i := indexByID(e.shifts, id, func(s ShiftRecord) string { return s.ID })
	if i < 0 {
		return ShiftRecord{}, false
	}
	return cloneShift(e.shifts[i]), true
}

// Shifts returns every shift record in insertion order.
func (e *WorkerEngine) Shifts() []ShiftRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.shifts, cloneShift)
}

// SubmitShift validates the shift and moves it to submitted. A shift that
// fails validation is returned unchanged with a *SubmissionError.
func (e *WorkerEngine) SubmitShift(ctx context.Context, id, actor string) (ShiftRecord, error) {
	shift, err := e.transitionShift(ctx, "SubmitShift", id, actor, "", ShiftStatusSubmitted, true)
	if err == nil || isNotSaved(err) {
		e.notify(ctx, ShiftSubmittedNotification(shift))
	}
	return shift, err
}

// ReopenShift sends a submitted shift back to the worker.
func (e *WorkerEngine) ReopenShift(ctx context.Context, id, actor, reason string) (ShiftRecord, error) {
	return e.transitionShift(ctx, "ReopenShift", id, actor, reason, ShiftStatusReopened, false)
}

// AcknowledgeShift records that a supervisor accepted the shift.
func (e *WorkerEngine) AcknowledgeShift(ctx context.Context, id, actor string) (ShiftRecord, error) {
	return e.transitionShift(ctx, "AcknowledgeShift", id, actor, "", ShiftStatusAcknowledged, false)
}

func (e *WorkerEngine) transitionShift(ctx context.Context, operation, id, actor, details string, to ShiftStatus, gate bool) (shift ShiftRecord, err error) {
	logger := e.loggerWith(ctx, operation, "shift_id", id, "actor", actor)
	defer func() { logOutcome(ctx, logger, err, "shift status changed", "status", shift.Status) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.shifts, id, func(s ShiftRecord) string { return s.ID })
	if i < 0 {
		return ShiftRecord{}, ErrNotFound
	}
	current := e.shifts[i]
	if !canTransition(shiftTransitions, current.Status, to) {
		return cloneShift(current), fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
	}
	if gate {
		if result := Validate(current.fields()); !result.CanSubmit {
			return cloneShift(current), &SubmissionError{RecordID: id, Result: result}
		}
	}

	now := e.now()
	shift = cloneShift(current)
	shift.Status = to
	shift.UpdatedAt = now
	if to == ShiftStatusSubmitted {
		shift.SubmittedAt = timePtr(now)
	}
	shift.AuditLog = e.audit.Append(current.AuditLog, auditActionFor(string(to)), actor, details)

	shifts := replaceAt(e.shifts, i, shift)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyShifts, Value: shifts})
	e.shifts = shifts
	return cloneShift(shift), err
}

func auditActionFor(status string) AuditAction {
	switch status {
	case string(ShiftStatusSubmitted), string(ReportStatusPending):
		return AuditSubmitted
	case string(ShiftStatusReopened):
		return AuditReopened
	case string(ShiftStatusAcknowledged):
		return AuditAcknowledged
	}
	return AuditAction(status)
}

// ------------------------------- Draft --------------------------------

// SaveDraft stores patch in the draft slot, stamped with LastSavedAt. The
// draft is independent of committed shifts.
func (e *WorkerEngine) SaveDraft(ctx context.Context, patch ShiftPatch) (draft ShiftDraft, err error) {
	logger := e.loggerWith(ctx, "SaveDraft")
	defer func() { logOutcome(ctx, logger, err, "shift draft saved") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	stored := ShiftDraft{ShiftPatch: cloneShiftPatch(patch), LastSavedAt: e.now()}
	err = e.writer.write(ctx, persistence.Entry{Key: KeyDraftShift, Value: stored})
	e.draft = &stored
	return ShiftDraft{ShiftPatch: cloneShiftPatch(stored.ShiftPatch), LastSavedAt: stored.LastSavedAt}, err
}

// Draft returns the autosaved shift draft.
func (e *WorkerEngine) Draft() (ShiftDraft, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.draft == nil {
		return ShiftDraft{}, false
	}
	return ShiftDraft{ShiftPatch: cloneShiftPatch(e.draft.ShiftPatch), LastSavedAt: e.draft.LastSavedAt}, true
}

// ClearDraft empties the draft slot.
func (e *WorkerEngine) ClearDraft(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "ClearDraft")
	defer func() { logOutcome(ctx, logger, err, "shift draft cleared") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.writer.write(ctx, persistence.Entry{Key: KeyDraftShift})
	e.draft = nil
	return err
}

// ------------------------------ Incidents ------------------------------

// AddIncident records an incident. When LinkedShiftID names an existing
// shift, the incident id is appended to that shift's IncidentIDs.
func (e *WorkerEngine) AddIncident(ctx context.Context, input IncidentInput) (IncidentRecord, error) {
	incident, err := e.addIncident(ctx, input)
	if err == nil || isNotSaved(err) {
		e.notify(ctx, IncidentNotification(incident))
	}
	return incident, err
}

func (e *WorkerEngine) addIncident(ctx context.Context, input IncidentInput) (incident IncidentRecord, err error) {
	logger := e.loggerWith(ctx, "AddIncident", "reported_by", input.ReportedBy, "severity", input.Severity)
	defer func() { logOutcome(ctx, logger, err, "incident recorded", "incident_id", incident.ID) }()

	if err = validateIncident(input); err != nil {
		return IncidentRecord{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	incident = IncidentRecord{
		ID:            e.newID(),
		ReportedBy:    input.ReportedBy,
		Description:   strings.TrimSpace(input.Description),
		Severity:      input.Severity,
		Area:          strings.TrimSpace(input.Area),
		Photos:        nonNil(slices.Clone(input.Photos)),
		LinkedShiftID: input.LinkedShiftID,
		CreatedAt:     now,
	}

	incidents := appendCopy(e.incidents, incident)
	entries := []persistence.Entry{{Key: KeyIncidents, Value: incidents}}

	shifts := e.shifts
	if input.LinkedShiftID != "" {
		i := indexByID(e.shifts, input.LinkedShiftID, func(s ShiftRecord) string { return s.ID })
		if i < 0 {
			logger.WarnContext(ctx, "linked shift not found", "shift_id", input.LinkedShiftID)
		} else {
			linked := applyShiftPatch(e.shifts[i], ShiftPatch{IncidentIDs: appendCopy(e.shifts[i].IncidentIDs, incident.ID)})
			linked.UpdatedAt = now
			shifts = replaceAt(e.shifts, i, linked)
			entries = append(entries, persistence.Entry{Key: KeyShifts, Value: shifts})
		}
	}

	err = e.writer.write(ctx, entries...)
	e.incidents = incidents
	e.shifts = shifts
	return cloneIncident(incident), err
}

func validateIncident(input IncidentInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Description) == "" {
		vErr.add("description", "description is required")
	}
	if !input.Severity.valid() {
		vErr.add("severity", "severity must be low, medium or high")
	}
	return vErr.errOrNil()
}

// Incidents returns every incident in insertion order.
func (e *WorkerEngine) Incidents() []IncidentRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.incidents, cloneIncident)
}

// TodayIncidents returns incidents created today.
func (e *WorkerEngine) TodayIncidents() []IncidentRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	today := dayKey(e.now())
	var out []IncidentRecord
	for _, incident := range e.incidents {
		if dayKey(incident.CreatedAt.In(e.now().Location())) == today {
			out = append(out, cloneIncident(incident))
		}
	}
	return out
}

// ------------------------------- Remarks -------------------------------

// AddRemark stores a remark received by the worker.
func (e *WorkerEngine) AddRemark(ctx context.Context, input RemarkInput) (remark RemarkRecord, err error) {
	logger := e.loggerWith(ctx, "AddRemark", "from", input.From)
	defer func() { logOutcome(ctx, logger, err, "remark stored", "remark_id", remark.ID) }()

	if err = validateRemark(input); err != nil {
		return RemarkRecord{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	remark = RemarkRecord{
		ID:           e.newID(),
		From:         input.From,
		Message:      strings.TrimSpace(input.Message),
		Severity:     input.Severity,
		CreatedAt:    e.now(),
		LinkedEntity: clonePtr(input.LinkedEntity),
	}
	remarks := appendCopy(e.remarks, remark)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyRemarks, Value: remarks})
	e.remarks = remarks
	return cloneRemark(remark), err
}

func validateRemark(input RemarkInput) error {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Message) == "" {
		vErr.add("message", "message is required")
	}
	if !input.Severity.valid() {
		vErr.add("severity", "severity must be info, warning or critical")
	}
	return vErr.errOrNil()
}

// Remarks returns every remark in insertion order.
func (e *WorkerEngine) Remarks() []RemarkRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.remarks, cloneRemark)
}

// MarkRemarkRead marks one remark as read. Read remarks stay read.
func (e *WorkerEngine) MarkRemarkRead(ctx context.Context, id string) (err error) {
	logger := e.loggerWith(ctx, "MarkRemarkRead", "remark_id", id)

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.remarks, id, func(r RemarkRecord) string { return r.ID })
	if i < 0 {
		return ErrNotFound
	}
	if e.remarks[i].IsRead {
		return nil
	}
	remark := e.remarks[i]
	remark.IsRead = true
	remarks := replaceAt(e.remarks, i, remark)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyRemarks, Value: remarks})
	e.remarks = remarks
	logOutcome(ctx, logger, err, "remark marked read")
	return err
}

// MarkAllRemarksRead marks every remark as read.
func (e *WorkerEngine) MarkAllRemarksRead(ctx context.Context) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !slices.ContainsFunc(e.remarks, func(r RemarkRecord) bool { return !r.IsRead }) {
		return nil
	}
	remarks := mapSlice(e.remarks, func(r RemarkRecord) RemarkRecord {
		r.IsRead = true
		return r
	})
	err = e.writer.write(ctx, persistence.Entry{Key: KeyRemarks, Value: remarks})
	e.remarks = remarks
	logOutcome(ctx, e.loggerWith(ctx, "MarkAllRemarksRead"), err, "remarks marked read")
	return err
}

// UnreadRemarksCount counts remarks not yet read.
func (e *WorkerEngine) UnreadRemarksCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, remark := range e.remarks {
		if !remark.IsRead {
			count++
		}
	}
	return count
}

// -------------------------------- Tasks --------------------------------

// AddTask stores a task created on this device.
func (e *WorkerEngine) AddTask(ctx context.Context, input TaskInput) (task TaskRecord, err error) {
	logger := e.loggerWith(ctx, "AddTask", "assigned_by", input.AssignedBy)
	defer func() { logOutcome(ctx, logger, err, "task stored", "task_id", task.ID) }()

	if strings.TrimSpace(input.Description) == "" {
		vErr := &ValidationError{}
		vErr.add("description", "description is required")
		return TaskRecord{}, vErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	task = newTaskRecord(e.newID(), e.now(), input)
	tasks := appendCopy(e.tasks, task)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyTasks, Value: tasks})
	e.tasks = tasks
	return cloneTask(task), err
}

func newTaskRecord(id string, now time.Time, input TaskInput) TaskRecord {
	task := TaskRecord{
		ID:          id,
		Description: strings.TrimSpace(input.Description),
		AssignedBy:  input.AssignedBy,
		AssignedTo:  nonNil(slices.Clone(input.AssignedTo)),
		DueDate:     input.DueDate,
		CreatedAt:   now,
	}
	if task.DueDate == "" {
		task.DueDate = dayKey(now)
	}
	return task
}

// ImportTask stores a task issued elsewhere, replacing any task with the
// same id.
func (e *WorkerEngine) ImportTask(ctx context.Context, task TaskRecord) (TaskRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	task = cloneTask(task)
	task.AssignedTo = nonNil(task.AssignedTo)
	var tasks []TaskRecord
	if i := indexByID(e.tasks, task.ID, func(t TaskRecord) string { return t.ID }); i >= 0 {
		tasks = replaceAt(e.tasks, i, task)
	} else {
		tasks = appendCopy(e.tasks, task)
	}
	err := e.writer.write(ctx, persistence.Entry{Key: KeyTasks, Value: tasks})
	e.tasks = tasks
	logOutcome(ctx, e.loggerWith(ctx, "ImportTask", "task_id", task.ID), err, "task imported")
	return cloneTask(task), err
}

// UpdateTask merges patch into the task. Marking a task done stamps
// CompletedAt; marking it not done clears it.
func (e *WorkerEngine) UpdateTask(ctx context.Context, id string, patch TaskPatch) (task TaskRecord, err error) {
	logger := e.loggerWith(ctx, "UpdateTask", "task_id", id)
	defer func() { logOutcome(ctx, logger, err, "task updated") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.tasks, id, func(t TaskRecord) string { return t.ID })
	if i < 0 {
		return TaskRecord{}, ErrNotFound
	}
	return e.updateTaskLocked(ctx, i, patch)
}

// ToggleTask flips a task's done flag.
func (e *WorkerEngine) ToggleTask(ctx context.Context, id string) (task TaskRecord, err error) {
	logger := e.loggerWith(ctx, "ToggleTask", "task_id", id)
	defer func() { logOutcome(ctx, logger, err, "task toggled", "is_done", task.IsDone) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.tasks, id, func(t TaskRecord) string { return t.ID })
	if i < 0 {
		return TaskRecord{}, ErrNotFound
	}
	done := !e.tasks[i].IsDone
	return e.updateTaskLocked(ctx, i, TaskPatch{IsDone: &done})
}

func (e *WorkerEngine) updateTaskLocked(ctx context.Context, i int, patch TaskPatch) (TaskRecord, error) {
	task := cloneTask(e.tasks[i])
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.IsDone != nil && *patch.IsDone != task.IsDone {
		task.IsDone = *patch.IsDone
		task.CompletedAt = nil
		if task.IsDone {
			task.CompletedAt = timePtr(e.now())
		}
	}

	tasks := replaceAt(e.tasks, i, task)
	err := e.writer.write(ctx, persistence.Entry{Key: KeyTasks, Value: tasks})
	e.tasks = tasks
	return cloneTask(task), err
}

// Tasks returns every task in insertion order.
func (e *WorkerEngine) Tasks() []TaskRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.tasks, cloneTask)
}

// TodayTasks returns tasks due today.
func (e *WorkerEngine) TodayTasks() []TaskRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	today := dayKey(e.now())
	var out []TaskRecord
	for _, task := range e.tasks {
		if task.DueDate == today {
			out = append(out, cloneTask(task))
		}
	}
	return out
}

// PendingTasksCount counts tasks not yet done.
func (e *WorkerEngine) PendingTasksCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, task := range e.tasks {
		if !task.IsDone {
			count++
		}
	}
	return count
}

// ------------------------------ Settings -------------------------------

// Settings returns the current settings.
func (e *WorkerEngine) Settings() AppSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	settings := e.settings
	settings.TooltipsShown = slices.Clone(settings.TooltipsShown)
	return settings
}

// UpdateSettings merges patch into the settings.
func (e *WorkerEngine) UpdateSettings(ctx context.Context, patch SettingsPatch) (settings AppSettings, err error) {
	logger := e.loggerWith(ctx, "UpdateSettings")
	defer func() { logOutcome(ctx, logger, err, "settings updated") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	settings = e.settings
	if patch.Language != nil {
		settings.Language = *patch.Language
	}
	if patch.DemoMode != nil {
		settings.DemoMode = *patch.DemoMode
	}
	if patch.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *patch.NotificationsEnabled
	}
	err = e.writer.write(ctx, persistence.Entry{Key: KeySettings, Value: settings})
	e.settings = settings
	return settings, err
}

// MarkTooltipShown records that a tooltip was displayed. Each id is kept
// once.
func (e *WorkerEngine) MarkTooltipShown(ctx context.Context, tooltipID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if slices.Contains(e.settings.TooltipsShown, tooltipID) {
		return nil
	}
	settings := e.settings
	settings.TooltipsShown = appendCopy(e.settings.TooltipsShown, tooltipID)
	err := e.writer.write(ctx, persistence.Entry{Key: KeySettings, Value: settings})
	e.settings = settings
	logOutcome(ctx, e.loggerWith(ctx, "MarkTooltipShown", "tooltip_id", tooltipID), err, "tooltip recorded")
	return err
}

// --------------------------- Demo and reset ----------------------------

// LoadDemoData replaces all five collections with the demo fixtures and
// turns demo mode on.
func (e *WorkerEngine) LoadDemoData(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "LoadDemoData")
	defer func() { logOutcome(ctx, logger, err, "demo data loaded") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	demo := newWorkerDemo(e.now(), e.newID)
	settings := e.settings
	settings.DemoMode = true

	err = e.writer.write(ctx,
		persistence.Entry{Key: KeyAttendance, Value: demo.attendance},
		persistence.Entry{Key: KeyShifts, Value: demo.shifts},
		persistence.Entry{Key: KeyIncidents, Value: demo.incidents},
		persistence.Entry{Key: KeyRemarks, Value: demo.remarks},
		persistence.Entry{Key: KeyTasks, Value: demo.tasks},
		persistence.Entry{Key: KeySettings, Value: settings},
	)
	e.attendance = demo.attendance
	e.shifts = demo.shifts
	e.incidents = demo.incidents
	e.remarks = demo.remarks
	e.tasks = demo.tasks
	e.settings = settings
	return err
}

// ClearAllData empties all five collections and turns demo mode off.
func (e *WorkerEngine) ClearAllData(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "ClearAllData")
	defer func() { logOutcome(ctx, logger, err, "worker data cleared") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	settings := e.settings
	settings.DemoMode = false

	err = e.writer.write(ctx,
		persistence.Entry{Key: KeyAttendance, Value: []AttendanceRecord{}},
		persistence.Entry{Key: KeyShifts, Value: []ShiftRecord{}},
		persistence.Entry{Key: KeyIncidents, Value: []IncidentRecord{}},
		persistence.Entry{Key: KeyRemarks, Value: []RemarkRecord{}},
		persistence.Entry{Key: KeyTasks, Value: []TaskRecord{}},
		persistence.Entry{Key: KeySettings, Value: settings},
	)
	e.attendance = []AttendanceRecord{}
	e.shifts = []ShiftRecord{}
	e.incidents = []IncidentRecord{}
	e.remarks = []RemarkRecord{}
	e.tasks = []TaskRecord{}
	e.settings = settings
	return err
}

// notify hands n to the sink. It must be called without holding e.mu.
func (e *WorkerEngine) notify(ctx context.Context, n Notification) {
	e.mu.RLock()
	sink := e.sink
	enabled := e.settings.NotificationsEnabled
	e.mu.RUnlock()

	if sink == nil || !enabled {
		return
	}
	if _, err := sink.AddNotification(ctx, n); err != nil {
		e.loggerWith(ctx, "notify").WarnContext(ctx, "notification not delivered", "error", err, "error_kind", ErrorKind(err))
	}
}
