package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/deepshift/mineshift/internal/persistence"
)

// ForemanEngine owns the foreman role's local state: the worker roster,
// section reports, notifications, the report draft and the profile.
//
// Incidents, tasks and remarks are owned by the worker engine. The foreman
// reads them through SharedRecords and hands new tasks over through TaskSink.
type ForemanEngine struct {
	mu     sync.RWMutex
	writer snapshotWriter
	audit  *AuditLogger
	newID  func() string
	now    func() time.Time
	logger *slog.Logger

	records SharedRecords
	tasks   TaskSink

	workers       []Worker
	reports       []SectionReport
	notifications []Notification
	draft         *ReportDraft
	profile       ForemanProfile
}

var _ NotificationSink = (*ForemanEngine)(nil)

// NewForemanEngine constructs an engine over store. The engine starts empty;
// call Load to read persisted state.
func NewForemanEngine(store *persistence.LocalStore, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ForemanEngine {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ForemanEngine{
		writer: newSnapshotWriter(store),
		audit:  NewAuditLogger(idGenerator, now),
		newID:  idGenerator,
		now:    now,
		logger: defaultLogger(logger),
	}
}

// AttachRecords connects the engine to the owner of shared records. Either
// argument may be nil.
func (e *ForemanEngine) AttachRecords(records SharedRecords, tasks TaskSink) {
	e.mu.Lock()
	e.records = records
	e.tasks = tasks
	e.mu.Unlock()
}

func (e *ForemanEngine) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, e.logger, "ForemanEngine", operation, attrs...)
}

// Load replaces the in-memory state with the persisted snapshot. Absent or
// unreadable keys load as empty. Pending writes are discarded.
func (e *ForemanEngine) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store := e.writer.store

	workers, _ := persistence.Load[[]Worker](ctx, store, KeyWorkers)
	reports, _ := persistence.Load[[]SectionReport](ctx, store, KeySectionReports)
	notifications, _ := persistence.Load[[]Notification](ctx, store, KeyNotifications)
	profile, _ := persistence.Load[ForemanProfile](ctx, store, KeyProfile)
	var draft *ReportDraft
	if d, ok := persistence.Load[ReportDraft](ctx, store, KeyDraftReport); ok {
		draft = &d
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if pending := e.writer.pendingKeys(); len(pending) > 0 {
		e.loggerWith(ctx, "Load").WarnContext(ctx, "discarding unsaved changes", "keys", pending)
	}
	e.writer.reset()
	e.workers = nonNil(workers)
	e.reports = nonNil(reports)
	e.notifications = nonNil(notifications)
	e.profile = profile
	e.draft = draft

	e.loggerWith(ctx, "Load").DebugContext(ctx, "foreman state loaded",
		"workers", len(e.workers),
		"section_reports", len(e.reports),
		"notifications", len(e.notifications),
	)
	return nil
}

// PendingWrites lists keys whose latest state has not been persisted.
func (e *ForemanEngine) PendingWrites() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.writer.pendingKeys()
}

// RetryPendingWrites persists the current snapshot of every pending key.
func (e *ForemanEngine) RetryPendingWrites(ctx context.Context) error {
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

func (e *ForemanEngine) entryLocked(key string) persistence.Entry {
	switch key {
	case KeyWorkers:
		return persistence.Entry{Key: key, Value: e.workers}
	case KeySectionReports:
		return persistence.Entry{Key: key, Value: e.reports}
	case KeyNotifications:
		return persistence.Entry{Key: key, Value: e.notifications}
	case KeyProfile:
		return persistence.Entry{Key: key, Value: e.profile}
	case KeyDraftReport:
		if e.draft == nil {
			return persistence.Entry{Key: key}
		}
		return persistence.Entry{Key: key, Value: *e.draft}
	}
	return persistence.Entry{Key: key}
}

// ------------------------------- Roster --------------------------------

// Workers returns the roster entries matching filter, in roster order.
func (e *ForemanEngine) Workers(filter WorkerFilter) []Worker {
	e.mu.RLock()
	defer e.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []Worker{}
	for _, worker := range e.workers {
		if filter.Section != "" && worker.Section != filter.Section {
			continue
		}
		if filter.Status != "" && worker.Attendance() != filter.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(worker.Name), search) &&
			!strings.Contains(strings.ToLower(worker.EmployeeID), search) {
			continue
		}
		out = append(out, cloneWorker(worker))
	}
	return out
}

// WorkerByID looks up a roster entry.
func (e *ForemanEngine) WorkerByID(id string) (Worker, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i := indexByID(e.workers, id, func(w Worker) string { return w.ID })
	if i < 0 {
		return Worker{}, false
	}
	return cloneWorker(e.workers[i]), true
}

// SetRoster replaces the roster, for example after a sync from the mine
// office.
func (e *ForemanEngine) SetRoster(ctx context.Context, workers []Worker) (err error) {
	logger := e.loggerWith(ctx, "SetRoster", "workers", len(workers))
	defer func() { logOutcome(ctx, logger, err, "roster replaced") }()

	vErr := &ValidationError{}
	seen := make(map[string]bool, len(workers))
	for i, worker := range workers {
		if worker.ID == "" {
			vErr.add(fmt.Sprintf("workers[%d].id", i), "worker id is required")
			continue
		}
		if seen[worker.ID] {
			vErr.add(fmt.Sprintf("workers[%d].id", i), "duplicate worker id")
		}
		seen[worker.ID] = true
	}
	if err = vErr.errOrNil(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	roster := mapSlice(workers, cloneWorker)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyWorkers, Value: roster})
	e.workers = roster
	return err
}

// ----------------------------- Attendance ------------------------------

// UpdateWorkerAttendance marks one worker's attendance for today.
func (e *ForemanEngine) UpdateWorkerAttendance(ctx context.Context, workerID string, status AttendanceStatus, reason string) (worker Worker, err error) {
	logger := e.loggerWith(ctx, "UpdateWorkerAttendance", "worker_id", workerID, "status", status)
	defer func() { logOutcome(ctx, logger, err, "attendance marked") }()

	if err = validateAttendanceStatus(status); err != nil {
		return Worker{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.workers, workerID, func(w Worker) string { return w.ID })
	if i < 0 {
		return Worker{}, ErrNotFound
	}
	worker = markAttendance(e.workers[i], status, reason, e.now())
	workers := replaceAt(e.workers, i, worker)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyWorkers, Value: workers})
	e.workers = workers
	return cloneWorker(worker), err
}

// BulkUpdateAttendance marks several workers with one shared timestamp.
// Unknown ids are skipped. It returns the updated workers.
func (e *ForemanEngine) BulkUpdateAttendance(ctx context.Context, workerIDs []string, status AttendanceStatus, reason string) (updated []Worker, err error) {
	logger := e.loggerWith(ctx, "BulkUpdateAttendance", "status", status, "requested", len(workerIDs))
	defer func() { logOutcome(ctx, logger, err, "attendance marked", "updated", len(updated)) }()

	if err = validateAttendanceStatus(status); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	selected := make(map[string]bool, len(workerIDs))
	for _, id := range workerIDs {
		selected[id] = true
	}

	markedAt := e.now()
	workers := slices.Clone(e.workers)
	updated = []Worker{}
	for i, worker := range workers {
		if !selected[worker.ID] {
			continue
		}
		workers[i] = markAttendance(worker, status, reason, markedAt)
		updated = append(updated, cloneWorker(workers[i]))
		delete(selected, worker.ID)
	}
	if len(selected) > 0 {
		unknown := make([]string, 0, len(selected))
		for id := range selected {
			unknown = append(unknown, id)
		}
		slices.Sort(unknown)
		logger.WarnContext(ctx, "unknown workers skipped", "worker_ids", unknown)
	}
	if len(updated) == 0 {
		return updated, nil
	}

	err = e.writer.write(ctx, persistence.Entry{Key: KeyWorkers, Value: workers})
	e.workers = workers
	return updated, err
}

func validateAttendanceStatus(status AttendanceStatus) error {
	if status.valid() {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("status", "status must be present, absent, tardy or not-marked")
	return vErr
}

func markAttendance(worker Worker, status AttendanceStatus, reason string, at time.Time) Worker {
	worker.TodayAttendance = status
	worker.AttendanceMarkedAt = timePtr(at)
	worker.AttendanceReason = reason
	worker.LastActivityAt = timePtr(at)
	return worker
}

// -------------------------------- Tasks --------------------------------

// CreateTask issues a new task and assigns it to input.AssignedTo.
func (e *ForemanEngine) CreateTask(ctx context.Context, input TaskInput) (TaskRecord, error) {
	if strings.TrimSpace(input.Description) == "" {
		vErr := &ValidationError{}
		vErr.add("description", "description is required")
		return TaskRecord{}, vErr
	}
	assignees := input.AssignedTo
	input.AssignedTo = nil
	task := newTaskRecord(e.newID(), e.now(), input)
	return e.AssignTaskToWorkers(ctx, task, assignees)
}

// AssignTaskToWorkers adds workerIDs to the task's assignees. Every new
// assignee gets one notification; those on the roster also get their open
// task count incremented. Ids already assigned are skipped. The resulting
// task is handed to the attached TaskSink.
func (e *ForemanEngine) AssignTaskToWorkers(ctx context.Context, task TaskRecord, workerIDs []string) (TaskRecord, error) {
	task, err := e.assignTask(ctx, task, workerIDs)
	if err != nil && !isNotSaved(err) {
		return task, err
	}

	e.mu.RLock()
	sink := e.tasks
	e.mu.RUnlock()
	if sink != nil {
		if _, sinkErr := sink.ImportTask(ctx, task); sinkErr != nil {
			e.loggerWith(ctx, "AssignTaskToWorkers", "task_id", task.ID).WarnContext(ctx,
				"task not delivered", "error", sinkErr, "error_kind", ErrorKind(sinkErr))
		}
	}
	return task, err
}

func (e *ForemanEngine) assignTask(ctx context.Context, task TaskRecord, workerIDs []string) (_ TaskRecord, err error) {
	logger := e.loggerWith(ctx, "AssignTaskToWorkers", "task_id", task.ID)
	defer func() { logOutcome(ctx, logger, err, "task assigned", "assignees", len(workerIDs)) }()

	if task.ID == "" {
		vErr := &ValidationError{}
		vErr.add("id", "task id is required")
		return task, vErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	task.AssignedTo = nonNil(slices.Clone(task.AssignedTo))
	workers := slices.Clone(e.workers)
	var issued []Notification
	for _, id := range workerIDs {
		if slices.Contains(task.AssignedTo, id) {
			continue
		}
		task.AssignedTo = append(task.AssignedTo, id)
		issued = append(issued, e.stampNotification(TaskAssignedNotification(task, id), now))

		i := indexByID(workers, id, func(w Worker) string { return w.ID })
		if i < 0 {
			logger.WarnContext(ctx, "assignee not on roster, counters unchanged", "worker_id", id)
			continue
		}
		workers[i].OpenTasksCount++
		workers[i].LastActivityAt = timePtr(now)
	}
	if len(issued) == 0 {
		return cloneTask(task), nil
	}

	notifications := prependNotifications(e.notifications, issued...)
	err = e.writer.write(ctx,
		persistence.Entry{Key: KeyWorkers, Value: workers},
		persistence.Entry{Key: KeyNotifications, Value: notifications},
	)
	e.workers = workers
	e.notifications = notifications
	return cloneTask(task), err
}

// ------------------------- Remarks and incidents -------------------------

// AddRemark issues a remark. A remark that targets a worker produces a
// notification, which is returned with ok set. The remark itself is not
// stored by this engine.
func (e *ForemanEngine) AddRemark(ctx context.Context, input RemarkInput) (n Notification, ok bool, err error) {
	logger := e.loggerWith(ctx, "AddRemark", "target_worker_id", input.TargetWorkerID, "severity", input.Severity)

	if err = validateRemark(input); err != nil {
		logOutcome(ctx, logger, err, "")
		return Notification{}, false, err
	}
	if input.TargetWorkerID == "" {
		logger.DebugContext(ctx, "remark has no target, nothing to notify")
		return Notification{}, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n = e.stampNotification(RemarkNotification(input), e.now())
	notifications := prependNotifications(e.notifications, n)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyNotifications, Value: notifications})
	e.notifications = notifications
	logOutcome(ctx, logger, err, "remark notification issued", "notification_id", n.ID)
	return cloneNotification(n), true, err
}

// AddIncident raises a severity-scaled notification for an incident and
// counts it against the reporting worker. No incident record is stored by
// this engine.
func (e *ForemanEngine) AddIncident(ctx context.Context, input IncidentInput) (n Notification, err error) {
	logger := e.loggerWith(ctx, "AddIncident", "reported_by", input.ReportedBy, "severity", input.Severity)
	defer func() { logOutcome(ctx, logger, err, "incident notification issued", "notification_id", n.ID) }()

	if err = validateIncident(input); err != nil {
		return Notification{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	n = e.stampNotification(IncidentNotification(IncidentRecord{
		ReportedBy:    input.ReportedBy,
		Description:   strings.TrimSpace(input.Description),
		Severity:      input.Severity,
		Area:          strings.TrimSpace(input.Area),
		LinkedShiftID: input.LinkedShiftID,
	}), now)
	notifications := prependNotifications(e.notifications, n)
	entries := []persistence.Entry{{Key: KeyNotifications, Value: notifications}}

	workers := e.workers
	if i := indexByID(e.workers, input.ReportedBy, func(w Worker) string { return w.ID }); i >= 0 {
		worker := e.workers[i]
		worker.RecentIncidentsCount++
		worker.LastActivityAt = timePtr(now)
		workers = replaceAt(e.workers, i, worker)
		entries = append(entries, persistence.Entry{Key: KeyWorkers, Value: workers})
	}

	err = e.writer.write(ctx, entries...)
	e.notifications = notifications
	e.workers = workers
	return cloneNotification(n), err
}

// WorkerIncidents returns the incidents reported by workerID, read from the
// attached shared records.
func (e *ForemanEngine) WorkerIncidents(workerID string) []IncidentRecord {
	e.mu.RLock()
	records := e.records
	e.mu.RUnlock()

	out := []IncidentRecord{}
	if records == nil {
		return out
	}
	for _, incident := range records.Incidents() {
		if incident.ReportedBy == workerID {
			out = append(out, incident)
		}
	}
	return out
}

// WorkerTasks returns the tasks assigned to workerID, read from the attached
// shared records.
func (e *ForemanEngine) WorkerTasks(workerID string) []TaskRecord {
	e.mu.RLock()
	records := e.records
	e.mu.RUnlock()

	out := []TaskRecord{}
	if records == nil {
		return out
	}
	for _, task := range records.Tasks() {
		if slices.Contains(task.AssignedTo, workerID) {
			out = append(out, task)
		}
	}
	return out
}

// --------------------------- Section reports ----------------------------

// CreateSectionReport stores a new draft report with its validation outcome.
// Reports that cannot be submitted yet are still stored.
func (e *ForemanEngine) CreateSectionReport(ctx context.Context, input SectionReportInput) (report SectionReport, err error) {
	logger := e.loggerWith(ctx, "CreateSectionReport", "section", input.Section)
	defer func() { logOutcome(ctx, logger, err, "section report created", "report_id", report.ID) }()

	vErr := &ValidationError{}
	if strings.TrimSpace(input.Section) == "" {
		vErr.add("section", "section is required")
	}
	if input.ShiftType != "" && !input.ShiftType.valid() {
		vErr.add("shiftType", "unknown shift type")
	}
	if err = vErr.errOrNil(); err != nil {
		return SectionReport{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	report = SectionReport{
		ID:                e.newID(),
		Section:           strings.TrimSpace(input.Section),
		ForemanID:         input.ForemanID,
		Date:              input.Date,
		ShiftType:         input.ShiftType,
		Equipment:         nonNil(cloneEquipment(input.Equipment)),
		GasCH4:            clonePtr(input.GasCH4),
		VentilationStatus: input.VentilationStatus,
		TotalWorkers:      clonePtr(input.TotalWorkers),
		PresentCount:      clonePtr(input.PresentCount),
		AbsentCount:       clonePtr(input.AbsentCount),
		TardyCount:        clonePtr(input.TardyCount),
		Remarks:           input.Remarks,
		Status:            ReportStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if report.Date == "" {
		report.Date = dayKey(now)
	}
	if report.ForemanID == "" {
		report.ForemanID = e.profile.ID
	}
	report = report.withValidation()
	report.AuditLog = e.audit.Append(nil, AuditCreated, report.ForemanID, "")

	reports := appendCopy(e.reports, report)
	err = e.writer.write(ctx, persistence.Entry{Key: KeySectionReports, Value: reports})
	e.reports = reports
	return cloneReport(report), err
}

// UpdateSectionReport merges patch into the report and revalidates it. The
// status is left as is.
func (e *ForemanEngine) UpdateSectionReport(ctx context.Context, id string, patch ReportPatch) (report SectionReport, err error) {
	logger := e.loggerWith(ctx, "UpdateSectionReport", "report_id", id)
	defer func() { logOutcome(ctx, logger, err, "section report updated") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.reports, id, func(r SectionReport) string { return r.ID })
	if i < 0 {
		return SectionReport{}, ErrNotFound
	}
	now := e.now()
	report = applyReportPatch(e.reports[i], patch).withValidation()
	report.UpdatedAt = now
	report.LastSavedAt = timePtr(now)

	reports := replaceAt(e.reports, i, report)
	err = e.writer.write(ctx, persistence.Entry{Key: KeySectionReports, Value: reports})
	e.reports = reports
	return cloneReport(report), err
}

func applyReportPatch(report SectionReport, patch ReportPatch) SectionReport {
	report = cloneReport(report)
	if patch.Section != nil {
		report.Section = strings.TrimSpace(*patch.Section)
	}
	if patch.Date != nil {
		report.Date = *patch.Date
	}
	if patch.ShiftType != nil {
		report.ShiftType = *patch.ShiftType
	}
	if patch.Equipment != nil {
		report.Equipment = cloneEquipment(patch.Equipment)
	}
	if patch.GasCH4 != nil {
		reading := *patch.GasCH4
		report.GasCH4 = &reading
	}
	if patch.VentilationStatus != nil {
		report.VentilationStatus = *patch.VentilationStatus
	}
	if patch.TotalWorkers != nil {
		report.TotalWorkers = intPtr(*patch.TotalWorkers)
	}
	if patch.PresentCount != nil {
		report.PresentCount = intPtr(*patch.PresentCount)
	}
	if patch.AbsentCount != nil {
		report.AbsentCount = intPtr(*patch.AbsentCount)
	}
	if patch.TardyCount != nil {
		report.TardyCount = intPtr(*patch.TardyCount)
	}
	if patch.Remarks != nil {
		report.Remarks = *patch.Remarks
	}
	return report
}

func intPtr(v int) *int {
	return &v
}

// SubmitSectionReport revalidates the report and moves it to pending. A
// report that fails validation is left unchanged and a *SubmissionError is
// returned.
func (e *ForemanEngine) SubmitSectionReport(ctx context.Context, id, actor string) (SectionReport, error) {
	return e.transitionReport(ctx, "SubmitSectionReport", id, actor, "", ReportStatusPending)
}

// ReopenSectionReport returns a pending report to its author.
func (e *ForemanEngine) ReopenSectionReport(ctx context.Context, id, actor, reason string) (SectionReport, error) {
	return e.transitionReport(ctx, "ReopenSectionReport", id, actor, reason, ReportStatusReopened)
}

// AcknowledgeSectionReport records that the next tier accepted the report.
func (e *ForemanEngine) AcknowledgeSectionReport(ctx context.Context, id, actor string) (SectionReport, error) {
	return e.transitionReport(ctx, "AcknowledgeSectionReport", id, actor, "", ReportStatusAcknowledged)
}

func (e *ForemanEngine) transitionReport(ctx context.Context, operation, id, actor, details string, to ReportStatus) (report SectionReport, err error) {
	logger := e.loggerWith(ctx, operation, "report_id", id, "actor", actor)
	defer func() { logOutcome(ctx, logger, err, "section report status changed", "status", report.Status) }()

	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.reports, id, func(r SectionReport) string { return r.ID })
	if i < 0 {
		return SectionReport{}, ErrNotFound
	}
	current := e.reports[i]
	if !canTransition(reportTransitions, current.Status, to) {
		return cloneReport(current), fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
	}

	now := e.now()
	report = cloneReport(current)
	var n Notification
	switch to {
	case ReportStatusPending:
		report = report.withValidation()
		if !report.CanSubmit {
			return cloneReport(current), &SubmissionError{
				RecordID: id,
				Result:   ValidationResult{Errors: report.ValidationErrors, Warnings: report.ValidationWarnings},
			}
		}
		report.SubmittedAt = timePtr(now)
		n = ReportSubmittedNotification(report)
	case ReportStatusReopened:
		n = ReportReopenedNotification(report, actor, details)
	case ReportStatusAcknowledged:
		n = ReportAcknowledgedNotification(report, actor)
	}
	report.Status = to
	report.UpdatedAt = now
	report.AuditLog = e.audit.Append(current.AuditLog, auditActionFor(string(to)), actor, details)

	reports := replaceAt(e.reports, i, report)
	notifications := prependNotifications(e.notifications, e.stampNotification(n, now))
	err = e.writer.write(ctx,
		persistence.Entry{Key: KeySectionReports, Value: reports},
		persistence.Entry{Key: KeyNotifications, Value: notifications},
	)
	e.reports = reports
	e.notifications = notifications
	return cloneReport(report), err
}

// SectionReportByID looks up a section report.
func (e *ForemanEngine) SectionReportByID(id string) (SectionReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	i := indexByID(e.reports, id, func(r SectionReport) string { return r.ID })
	if i < 0 {
		return SectionReport{}, false
	}
	return cloneReport(e.reports[i]), true
}

// SectionReports returns every section report in creation order.
func (e *ForemanEngine) SectionReports() []SectionReport {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.reports, cloneReport)
}

// ----------------------------- Draft report -----------------------------

// SaveDraftReport stores patch in the draft slot, stamped with LastSavedAt.
func (e *ForemanEngine) SaveDraftReport(ctx context.Context, patch ReportPatch) (draft ReportDraft, err error) {
	logger := e.loggerWith(ctx, "SaveDraftReport")
	defer func() { logOutcome(ctx, logger, err, "report draft saved") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	stored := ReportDraft{ReportPatch: cloneReportPatch(patch), LastSavedAt: e.now()}
	err = e.writer.write(ctx, persistence.Entry{Key: KeyDraftReport, Value: stored})
	e.draft = &stored
	return ReportDraft{ReportPatch: cloneReportPatch(stored.ReportPatch), LastSavedAt: stored.LastSavedAt}, err
}

// DraftReport returns the autosaved report draft.
func (e *ForemanEngine) DraftReport() (ReportDraft, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.draft == nil {
		return ReportDraft{}, false
	}
	return ReportDraft{ReportPatch: cloneReportPatch(e.draft.ReportPatch), LastSavedAt: e.draft.LastSavedAt}, true
}

// ClearDraftReport empties the draft slot.
func (e *ForemanEngine) ClearDraftReport(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "ClearDraftReport")
	defer func() { logOutcome(ctx, logger, err, "report draft cleared") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.writer.write(ctx, persistence.Entry{Key: KeyDraftReport})
	e.draft = nil
	return err
}

// ---------------------------- Notifications -----------------------------

// AddNotification stores n as unread with a fresh id and creation time.
// Newest notifications come first.
func (e *ForemanEngine) AddNotification(ctx context.Context, n Notification) (_ Notification, err error) {
	logger := e.loggerWith(ctx, "AddNotification", "type", n.Type)

	e.mu.Lock()
	defer e.mu.Unlock()

	n = e.stampNotification(n, e.now())
	notifications := prependNotifications(e.notifications, n)
	err = e.writer.write(ctx, persistence.Entry{Key: KeyNotifications, Value: notifications})
	e.notifications = notifications
	logOutcome(ctx, logger, err, "notification stored", "notification_id", n.ID)
	return cloneNotification(n), err
}

func (e *ForemanEngine) stampNotification(n Notification, at time.Time) Notification {
	n = cloneNotification(n)
	n.ID = e.newID()
	n.CreatedAt = at
	n.IsRead = false
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	return n
}

func prependNotifications(existing []Notification, added ...Notification) []Notification {
	out := make([]Notification, 0, len(existing)+len(added))
	for i := len(added) - 1; i >= 0; i-- {
		out = append(out, added[i])
	}
	return append(out, existing...)
}

// Notifications returns every notification, newest first.
func (e *ForemanEngine) Notifications() []Notification {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return mapSlice(e.notifications, cloneNotification)
}

// MarkNotificationRead marks one notification as read. Read notifications
// stay read.
func (e *ForemanEngine) MarkNotificationRead(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := indexByID(e.notifications, id, func(n Notification) string { return n.ID })
	if i < 0 {
		return ErrNotFound
	}
	if e.notifications[i].IsRead {
		return nil
	}
	n := e.notifications[i]
	n.IsRead = true
	notifications := replaceAt(e.notifications, i, n)
	err := e.writer.write(ctx, persistence.Entry{Key: KeyNotifications, Value: notifications})
	e.notifications = notifications
	logOutcome(ctx, e.loggerWith(ctx, "MarkNotificationRead", "notification_id", id), err, "notification marked read")
	return err
}

// MarkAllNotificationsRead marks every notification as read. Calling it
// again changes nothing.
func (e *ForemanEngine) MarkAllNotificationsRead(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !slices.ContainsFunc(e.notifications, func(n Notification) bool { return !n.IsRead }) {
		return nil
	}
	notifications := mapSlice(e.notifications, func(n Notification) Notification {
		n.IsRead = true
		return n
	})
	err := e.writer.write(ctx, persistence.Entry{Key: KeyNotifications, Value: notifications})
	e.notifications = notifications
	logOutcome(ctx, e.loggerWith(ctx, "MarkAllNotificationsRead"), err, "notifications marked read")
	return err
}

// UnreadNotificationsCount counts notifications not yet read.
func (e *ForemanEngine) UnreadNotificationsCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, n := range e.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// ------------------------------- Profile --------------------------------

// Profile returns the foreman profile.
func (e *ForemanEngine) Profile() ForemanProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile
}

// UpdateProfile merges patch into the profile.
func (e *ForemanEngine) UpdateProfile(ctx context.Context, patch ProfilePatch) (profile ForemanProfile, err error) {
	logger := e.loggerWith(ctx, "UpdateProfile")
	defer func() { logOutcome(ctx, logger, err, "profile updated") }()

	if patch.ShiftType != nil && !patch.ShiftType.valid() {
		vErr := &ValidationError{}
		vErr.add("shiftType", "unknown shift type")
		return ForemanProfile{}, vErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	profile = e.profile
	if patch.Name != nil {
		profile.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.EmployeeID != nil {
		profile.EmployeeID = strings.TrimSpace(*patch.EmployeeID)
	}
	if patch.Section != nil {
		profile.Section = strings.TrimSpace(*patch.Section)
	}
	if patch.Phone != nil {
		profile.Phone = strings.TrimSpace(*patch.Phone)
	}
	if patch.ShiftType != nil {
		profile.ShiftType = *patch.ShiftType
	}
	err = e.writer.write(ctx, persistence.Entry{Key: KeyProfile, Value: profile})
	e.profile = profile
	return profile, err
}

// ------------------------------ Dashboard -------------------------------

// DashboardStats derives the dashboard KPIs from the current roster and
// reports.
func (e *ForemanEngine) DashboardStats() DashboardStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := DashboardStats{TotalWorkers: len(e.workers)}
	for _, worker := range e.workers {
		switch worker.Attendance() {
		case AttendancePresent:
			stats.Present++
		case AttendanceAbsent:
			stats.Absent++
		case AttendanceTardy:
			stats.Tardy++
		default:
			stats.NotMarked++
		}
		stats.OpenIncidents += worker.RecentIncidentsCount
		stats.OpenTasks += worker.OpenTasksCount
	}
	if stats.TotalWorkers > 0 {
		stats.AttendancePercentage = int(math.Round(float64(stats.Present) / float64(stats.TotalWorkers) * 100))
	}
	for _, report := range e.reports {
		switch report.Status {
		case ReportStatusDraft:
			stats.DraftReports++
		case ReportStatusPending:
			stats.PendingReports++
		case ReportStatusReopened:
			stats.ReopenedReports++
		}
	}
	return stats
}

// --------------------------- Demo and reset -----------------------------

// LoadDemoData replaces the roster, reports, notifications and profile with
// the demo fixtures.
func (e *ForemanEngine) LoadDemoData(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "LoadDemoData")
	defer func() { logOutcome(ctx, logger, err, "demo data loaded") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	demo := newForemanDemo(e.now(), e.newID, e.audit)
	err = e.writer.write(ctx,
		persistence.Entry{Key: KeyWorkers, Value: demo.workers},
		persistence.Entry{Key: KeySectionReports, Value: demo.reports},
		persistence.Entry{Key: KeyNotifications, Value: demo.notifications},
		persistence.Entry{Key: KeyProfile, Value: demo.profile},
	)
	e.workers = demo.workers
	e.reports = demo.reports
	e.notifications = demo.notifications
	e.profile = demo.profile
	return err
}

// ClearAllData empties the roster, reports and notifications. The profile
// and the draft are kept.
func (e *ForemanEngine) ClearAllData(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "ClearAllData")
	defer func() { logOutcome(ctx, logger, err, "foreman data cleared") }()

	e.mu.Lock()
	defer e.mu.Unlock()

	err = e.writer.write(ctx,
		persistence.Entry{Key: KeyWorkers, Value: []Worker{}},
		persistence.Entry{Key: KeySectionReports, Value: []SectionReport{}},
		persistence.Entry{Key: KeyNotifications, Value: []Notification{}},
	)
	e.workers = []Worker{}
	e.reports = []SectionReport{}
	e.notifications = []Notification{}
	return err
}
