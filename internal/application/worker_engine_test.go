package application_test

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/deepshift/mineshift/internal/application"
	"github.com/deepshift/mineshift/internal/persistence/memory"
	"github.com/deepshift/mineshift/internal/testfixtures"
)

type recordingSink struct {
	mu  sync.Mutex
	got []application.Notification
	err error
}

func (s *recordingSink) AddNotification(ctx context.Context, n application.Notification) (application.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return n, s.err
}

func (s *recordingSink) notifications() []application.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.got)
}

func newWorker(t *testing.T) (*testfixtures.EngineFactory, *application.WorkerEngine) {
	t.Helper()
	factory := testfixtures.NewEngineFactory()
	engine := factory.NewWorkerEngine()
	if err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	return factory, engine
}

func TestWorkerEngineAddAttendance(t *testing.T) {
	t.Parallel()

	t.Run("confirmed presence is stamped", func(t *testing.T) {
		t.Parallel()
		factory, engine := newWorker(t)

		record, err := engine.AddAttendance(context.Background(), application.AttendanceInput{
			WorkerID:       application.DemoWorkerID,
			ShiftType:      application.ShiftMorning,
			Area:           "Panel 3 North",
			PresenceStatus: application.PresencePresent,
			Confirmed:      true,
		})
		if err != nil {
			t.Fatalf("AddAttendance returned error: %v", err)
		}
		if record.Date != factory.Clock.Today() {
			t.Fatalf("expected date %s, got %s", factory.Clock.Today(), record.Date)
		}
		if record.ConfirmedAt == nil || !record.ConfirmedAt.Equal(factory.Clock.Now()) {
			t.Fatalf("expected confirmedAt to be stamped, got %v", record.ConfirmedAt)
		}
		today, ok := engine.TodayAttendance()
		if !ok || today.ID != record.ID {
			t.Fatalf("expected today's attendance to be %s, got %+v", record.ID, today)
		}
	})

	t.Run("absence is never confirmed", func(t *testing.T) {
		t.Parallel()
		_, engine := newWorker(t)

		record, err := engine.AddAttendance(context.Background(), application.AttendanceInput{
			PresenceStatus: application.PresenceAbsent,
			Confirmed:      true,
		})
		if err != nil {
			t.Fatalf("AddAttendance returned error: %v", err)
		}
		if record.ConfirmedAt != nil {
			t.Fatalf("expected no confirmedAt for absence, got %v", record.ConfirmedAt)
		}
	})

	t.Run("invalid presence is rejected", func(t *testing.T) {
		t.Parallel()
		_, engine := newWorker(t)

		_, err := engine.AddAttendance(context.Background(), application.AttendanceInput{PresenceStatus: "asleep"})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["presenceStatus"] == "" {
			t.Fatalf("expected presenceStatus validation error, got %v", err)
		}
		if got := len(engine.Attendance()); got != 0 {
			t.Fatalf("expected nothing recorded, got %d", got)
		}
	})

	t.Run("duplicates are kept and flagged", func(t *testing.T) {
		t.Parallel()
		factory, engine := newWorker(t)
		ctx := context.Background()

		first, _ := engine.AddAttendance(ctx, application.AttendanceInput{PresenceStatus: application.PresenceTardy})
		if engine.HasDuplicateAttendance(factory.Clock.Today()) {
			t.Fatalf("expected no duplicate after first record")
		}
		if _, err := engine.AddAttendance(ctx, application.AttendanceInput{PresenceStatus: application.PresencePresent}); err != nil {
			t.Fatalf("AddAttendance returned error: %v", err)
		}
		if !engine.HasDuplicateAttendance(factory.Clock.Today()) {
			t.Fatalf("expected duplicate to be reported")
		}
		today, _ := engine.TodayAttendance()
		if today.ID != first.ID {
			t.Fatalf("expected first record to win, got %s", today.ID)
		}
	})
}

func TestWorkerEngineShiftLifecycle(t *testing.T) {
	t.Parallel()

	factory, engine := newWorker(t)
	sink := &recordingSink{}
	engine.SetNotificationSink(sink)
	ctx := context.Background()

	shift, err := engine.AddShift(ctx, testfixtures.NewShiftInput(testfixtures.WithoutGas()))
	if err != nil {
		t.Fatalf("AddShift returned error: %v", err)
	}
	if shift.Status != application.ShiftStatusDraft {
		t.Fatalf("expected draft status, got %s", shift.Status)
	}
	if len(shift.AuditLog) != 1 || shift.AuditLog[0].Action != application.AuditCreated {
		t.Fatalf("expected one created audit entry, got %+v", shift.AuditLog)
	}

	_, err = engine.SubmitShift(ctx, shift.ID, application.DemoWorkerID)
	var sErr *application.SubmissionError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected submission error, got %v", err)
	}
	if stored, _ := engine.GetShiftByID(shift.ID); stored.Status != application.ShiftStatusDraft {
		t.Fatalf("expected status to remain draft, got %s", stored.Status)
	}
	if len(sink.notifications()) != 0 {
		t.Fatalf("expected no notification for rejected submission")
	}

	factory.Clock.Advance(10 * time.Minute)
	updated, err := engine.UpdateShift(ctx, shift.ID, application.ShiftPatch{GasCH4: testfixtures.Float(0.7)})
	if err != nil {
		t.Fatalf("UpdateShift returned error: %v", err)
	}
	if updated.Status != application.ShiftStatusDraft || len(updated.AuditLog) != 1 {
		t.Fatalf("expected update to leave status and audit untouched, got %s with %d entries", updated.Status, len(updated.AuditLog))
	}
	if !updated.UpdatedAt.Equal(factory.Clock.Now()) || updated.Area != shift.Area {
		t.Fatalf("expected merge with fresh updatedAt, got %+v", updated)
	}

	submitted, err := engine.SubmitShift(ctx, shift.ID, application.DemoWorkerID)
	if err != nil {
		t.Fatalf("SubmitShift returned error: %v", err)
	}
	if submitted.Status != application.ShiftStatusSubmitted || submitted.SubmittedAt == nil {
		t.Fatalf("expected submitted shift, got %+v", submitted)
	}
	if len(submitted.AuditLog) != 2 || submitted.AuditLog[1].Action != application.AuditSubmitted {
		t.Fatalf("expected submitted audit entry, got %+v", submitted.AuditLog)
	}
	if got := sink.notifications(); len(got) != 1 || got[0].LinkedEntity.ID != shift.ID {
		t.Fatalf("expected one shift notification, got %+v", got)
	}

	if _, err := engine.SubmitShift(ctx, shift.ID, application.DemoWorkerID); !errors.Is(err, application.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition on resubmit, got %v", err)
	}

	reopened, err := engine.ReopenShift(ctx, shift.ID, application.DemoForemanID, "missing PPE notes")
	if err != nil || reopened.Status != application.ShiftStatusReopened {
		t.Fatalf("expected reopened shift, got %s (%v)", reopened.Status, err)
	}
	if last := reopened.AuditLog[len(reopened.AuditLog)-1]; last.Details != "missing PPE notes" || last.Actor != application.DemoForemanID {
		t.Fatalf("unexpected reopen audit entry: %+v", last)
	}

	acknowledged, err := engine.AcknowledgeShift(ctx, shift.ID, application.DemoForemanID)
	if err != nil || acknowledged.Status != application.ShiftStatusAcknowledged {
		t.Fatalf("expected acknowledged shift, got %s (%v)", acknowledged.Status, err)
	}
	if len(acknowledged.AuditLog) != 4 {
		t.Fatalf("expected four audit entries, got %d", len(acknowledged.AuditLog))
	}
	for i, entry := range submitted.AuditLog {
		if acknowledged.AuditLog[i] != entry {
			t.Fatalf("expected audit prefix to be preserved at %d", i)
		}
	}
}

func TestWorkerEngineUnknownShift(t *testing.T) {
	t.Parallel()
	_, engine := newWorker(t)
	ctx := context.Background()

	if _, err := engine.UpdateShift(ctx, "missing", application.ShiftPatch{}); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from UpdateShift, got %v", err)
	}
	if _, err := engine.SubmitShift(ctx, "missing", "w"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from SubmitShift, got %v", err)
	}
	if _, ok := engine.GetShiftByID("missing"); ok {
		t.Fatalf("expected lookup to miss")
	}
}

func TestWorkerEngineDraftRoundTrip(t *testing.T) {
	t.Parallel()

	factory, engine := newWorker(t)
	ctx := context.Background()

	patch := application.ShiftPatch{
		Area:      testfixtures.String("Panel 4 South"),
		GasCH4:    testfixtures.Float(0.3),
		Equipment: []application.EquipmentCheck{testfixtures.Equipment(application.ConditionNeedsRepair)},
	}
	saved, err := engine.SaveDraft(ctx, patch)
	if err != nil {
		t.Fatalf("SaveDraft returned error: %v", err)
	}
	if !saved.LastSavedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected lastSavedAt %v, got %v", factory.Clock.Now(), saved.LastSavedAt)
	}

	draft, ok := engine.Draft()
	if !ok || !reflect.DeepEqual(draft.ShiftPatch, patch) {
		t.Fatalf("expected draft to equal saved patch, got %+v", draft)
	}
	if got := len(engine.Shifts()); got != 0 {
		t.Fatalf("expected draft to stay out of committed shifts, got %d", got)
	}

	reloaded := factory.NewWorkerEngine()
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	persisted, ok := reloaded.Draft()
	if !ok || !reflect.DeepEqual(persisted.ShiftPatch, patch) || !persisted.LastSavedAt.Equal(saved.LastSavedAt) {
		t.Fatalf("expected persisted draft to match, got %+v", persisted)
	}

	if err := engine.ClearDraft(ctx); err != nil {
		t.Fatalf("ClearDraft returned error: %v", err)
	}
	if _, ok := engine.Draft(); ok {
		t.Fatalf("expected no draft after clear")
	}
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, ok := reloaded.Draft(); ok {
		t.Fatalf("expected cleared draft to stay cleared after reload")
	}
}

func TestWorkerEngineAddIncident(t *testing.T) {
	t.Parallel()

	t.Run("links to an existing shift", func(t *testing.T) {
		t.Parallel()
		_, engine := newWorker(t)
		sink := &recordingSink{}
		engine.SetNotificationSink(sink)
		ctx := context.Background()

		shift, _ := engine.AddShift(ctx, testfixtures.NewShiftInput())
		incident, err := engine.AddIncident(ctx, application.IncidentInput{
			ReportedBy:    application.DemoWorkerID,
			Description:   "Roof fall near belt",
			Severity:      application.SeverityHigh,
			Photos:        []string{"p.jpg"},
			LinkedShiftID: shift.ID,
		})
		if err != nil {
			t.Fatalf("AddIncident returned error: %v", err)
		}
		linked, _ := engine.GetShiftByID(shift.ID)
		if !slices.Equal(linked.IncidentIDs, []string{incident.ID}) {
			t.Fatalf("expected shift to reference incident, got %v", linked.IncidentIDs)
		}
		if len(linked.AuditLog) != 1 {
			t.Fatalf("expected linking to leave the audit log alone, got %d entries", len(linked.AuditLog))
		}
		got := sink.notifications()
		if len(got) != 1 || got[0].Type != application.NotificationUrgent {
			t.Fatalf("expected one urgent notification, got %+v", got)
		}
		if today := engine.TodayIncidents(); len(today) != 1 {
			t.Fatalf("expected one incident today, got %d", len(today))
		}
	})

	t.Run("keeps a dangling link", func(t *testing.T) {
		t.Parallel()
		_, engine := newWorker(t)

		incident, err := engine.AddIncident(context.Background(), application.IncidentInput{
			Description:   "Loose rock",
			Severity:      application.SeverityLow,
			LinkedShiftID: "gone",
		})
		if err != nil {
			t.Fatalf("AddIncident returned error: %v", err)
		}
		if incident.LinkedShiftID != "gone" {
			t.Fatalf("expected link to be kept, got %q", incident.LinkedShiftID)
		}
	})

	t.Run("rejects missing description", func(t *testing.T) {
		t.Parallel()
		_, engine := newWorker(t)

		_, err := engine.AddIncident(context.Background(), application.IncidentInput{Severity: "extreme"})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) || len(vErr.FieldErrors) != 2 {
			t.Fatalf("expected description and severity errors, got %v", err)
		}
	})

	t.Run("sink failure does not fail the incident", func(t *testing.T) {
		t.Parallel()
		_, engine := newWorker(t)
		engine.SetNotificationSink(&recordingSink{err: errors.New("offline")})

		if _, err := engine.AddIncident(context.Background(), application.IncidentInput{Description: "Slip", Severity: application.SeverityLow}); err != nil {
			t.Fatalf("expected sink failure to be swallowed, got %v", err)
		}
	})
}

func TestWorkerEngineRemarks(t *testing.T) {
	t.Parallel()

	_, engine := newWorker(t)
	ctx := context.Background()

	first, _ := engine.AddRemark(ctx, application.RemarkInput{From: "f-001", Message: "Wear gloves", Severity: application.RemarkWarning})
	if _, err := engine.AddRemark(ctx, application.RemarkInput{From: "f-001", Message: "Well done", Severity: application.RemarkInfo}); err != nil {
		t.Fatalf("AddRemark returned error: %v", err)
	}
	if got := engine.UnreadRemarksCount(); got != 2 {
		t.Fatalf("expected 2 unread remarks, got %d", got)
	}

	if err := engine.MarkRemarkRead(ctx, first.ID); err != nil {
		t.Fatalf("MarkRemarkRead returned error: %v", err)
	}
	if err := engine.MarkRemarkRead(ctx, first.ID); err != nil {
		t.Fatalf("expected marking twice to succeed, got %v", err)
	}
	if got := engine.UnreadRemarksCount(); got != 1 {
		t.Fatalf("expected 1 unread remark, got %d", got)
	}

	if err := engine.MarkAllRemarksRead(ctx); err != nil {
		t.Fatalf("MarkAllRemarksRead returned error: %v", err)
	}
	if got := engine.UnreadRemarksCount(); got != 0 {
		t.Fatalf("expected no unread remarks, got %d", got)
	}
	if err := engine.MarkRemarkRead(ctx, "missing"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkerEngineTasks(t *testing.T) {
	t.Parallel()

	factory, engine := newWorker(t)
	ctx := context.Background()

	task, err := engine.AddTask(ctx, application.TaskInput{Description: "Check rollers", AssignedBy: "f-001"})
	if err != nil {
		t.Fatalf("AddTask returned error: %v", err)
	}
	if task.DueDate != factory.Clock.Today() {
		t.Fatalf("expected due date today, got %s", task.DueDate)
	}
	tomorrow := factory.Clock.Now().AddDate(0, 0, 1).Format("2006-01-02")
	if _, err := engine.AddTask(ctx, application.TaskInput{Description: "Restock kit", DueDate: tomorrow}); err != nil {
		t.Fatalf("AddTask returned error: %v", err)
	}

	if got := len(engine.TodayTasks()); got != 1 {
		t.Fatalf("expected one task due today, got %d", got)
	}

	done, err := engine.ToggleTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleTask returned error: %v", err)
	}
	if !done.IsDone || done.CompletedAt == nil {
		t.Fatalf("expected task to be completed, got %+v", done)
	}
	if got := engine.PendingTasksCount(); got != 1 {
		t.Fatalf("expected one pending task, got %d", got)
	}

	undone, err := engine.ToggleTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleTask returned error: %v", err)
	}
	if undone.IsDone || undone.CompletedAt != nil {
		t.Fatalf("expected completion to be cleared, got %+v", undone)
	}

	if _, err := engine.ToggleTask(ctx, "missing"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWorkerEngineSettings(t *testing.T) {
	t.Parallel()

	_, engine := newWorker(t)
	ctx := context.Background()

	settings := engine.Settings()
	if settings.Language != "en" || !settings.NotificationsEnabled || settings.DemoMode {
		t.Fatalf("unexpected default settings: %+v", settings)
	}

	updated, err := engine.UpdateSettings(ctx, application.SettingsPatch{Language: testfixtures.String("hi")})
	if err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	if updated.Language != "hi" || !updated.NotificationsEnabled {
		t.Fatalf("expected merge to keep other fields, got %+v", updated)
	}

	for i := 0; i < 2; i++ {
		if err := engine.MarkTooltipShown(ctx, "attendance-intro"); err != nil {
			t.Fatalf("MarkTooltipShown returned error: %v", err)
		}
	}
	if got := engine.Settings().TooltipsShown; !slices.Equal(got, []string{"attendance-intro"}) {
		t.Fatalf("expected tooltip to be recorded once, got %v", got)
	}
}

func TestWorkerEngineDemoThenClear(t *testing.T) {
	t.Parallel()

	factory, engine := newWorker(t)
	ctx := context.Background()

	if err := engine.LoadDemoData(ctx); err != nil {
		t.Fatalf("LoadDemoData returned error: %v", err)
	}
	if !engine.Settings().DemoMode {
		t.Fatalf("expected demo mode on")
	}
	if len(engine.Attendance()) == 0 || len(engine.Shifts()) == 0 || len(engine.Incidents()) == 0 ||
		len(engine.Remarks()) == 0 || len(engine.Tasks()) == 0 {
		t.Fatalf("expected every collection to be seeded")
	}
	if got := engine.UnreadRemarksCount(); got != 1 {
		t.Fatalf("expected one unread demo remark, got %d", got)
	}
	if got := len(engine.TodayTasks()); got != 2 {
		t.Fatalf("expected two demo tasks due today, got %d", got)
	}

	if err := engine.ClearAllData(ctx); err != nil {
		t.Fatalf("ClearAllData returned error: %v", err)
	}
	if engine.Settings().DemoMode {
		t.Fatalf("expected demo mode off")
	}
	if len(engine.Attendance())+len(engine.Shifts())+len(engine.Incidents())+len(engine.Remarks())+len(engine.Tasks()) != 0 {
		t.Fatalf("expected every collection to be empty")
	}

	reloaded := factory.NewWorkerEngine()
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(reloaded.Shifts()) != 0 || reloaded.Settings().DemoMode {
		t.Fatalf("expected cleared state to be persisted")
	}
}

func TestWorkerEngineNotSavedIsQueuedForRetry(t *testing.T) {
	t.Parallel()

	factory, engine := newWorker(t)
	ctx := context.Background()
	factory.Backend.Fail(memory.OpPut, application.KeyShifts, errors.New("disk full"))

	shift, err := engine.AddShift(ctx, testfixtures.NewShiftInput())
	if !errors.Is(err, application.ErrNotSaved) {
		t.Fatalf("expected ErrNotSaved, got %v", err)
	}
	if _, ok := engine.GetShiftByID(shift.ID); !ok {
		t.Fatalf("expected in-memory state to hold the unsaved shift")
	}
	if got := engine.PendingWrites(); !slices.Equal(got, []string{application.KeyShifts}) {
		t.Fatalf("expected shifts to be pending, got %v", got)
	}

	if err := engine.RetryPendingWrites(ctx); !errors.Is(err, application.ErrNotSaved) {
		t.Fatalf("expected retry to fail while the store is broken, got %v", err)
	}

	factory.Backend.Heal()
	if err := engine.RetryPendingWrites(ctx); err != nil {
		t.Fatalf("RetryPendingWrites returned error: %v", err)
	}
	if got := engine.PendingWrites(); len(got) != 0 {
		t.Fatalf("expected nothing pending, got %v", got)
	}

	reloaded := factory.NewWorkerEngine()
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, ok := reloaded.GetShiftByID(shift.ID); !ok {
		t.Fatalf("expected retried shift to be persisted")
	}
}

func TestWorkerEngineReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()

	_, engine := newWorker(t)
	ctx := context.Background()

	incident, err := engine.AddIncident(ctx, application.IncidentInput{
		ReportedBy:  application.DemoWorkerID,
		Description: "Loose rock on haul road",
		Severity:    application.SeverityHigh,
		Photos:      []string{"a.jpg"},
	})
	if err != nil {
		t.Fatalf("AddIncident returned error: %v", err)
	}
	incident.Photos[0] = "changed.jpg"
	engine.Incidents()[0].Photos[0] = "changed.jpg"
	engine.TodayIncidents()[0].Photos[0] = "changed.jpg"
	if got := engine.Incidents()[0].Photos[0]; got != "a.jpg" {
		t.Fatalf("expected stored incident photos to be unchanged, got %q", got)
	}

	task, err := engine.AddTask(ctx, application.TaskInput{Description: "Check pump", AssignedTo: []string{"w-001"}})
	if err != nil {
		t.Fatalf("AddTask returned error: %v", err)
	}
	task.AssignedTo[0] = "w-999"
	engine.Tasks()[0].AssignedTo[0] = "w-999"
	done, err := engine.ToggleTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("ToggleTask returned error: %v", err)
	}
	*done.CompletedAt = time.Time{}
	stored := engine.Tasks()[0]
	if stored.AssignedTo[0] != "w-001" || stored.CompletedAt == nil || stored.CompletedAt.IsZero() {
		t.Fatalf("expected stored task to be unchanged, got %+v", stored)
	}

	if _, err := engine.AddRemark(ctx, application.RemarkInput{
		From:         application.DemoForemanID,
		Message:      "Wear the respirator",
		Severity:     application.RemarkWarning,
		LinkedEntity: &application.LinkedEntity{ID: incident.ID, Type: "incident"},
	}); err != nil {
		t.Fatalf("AddRemark returned error: %v", err)
	}
	engine.Remarks()[0].LinkedEntity.ID = "other"
	if got := engine.Remarks()[0].LinkedEntity.ID; got != incident.ID {
		t.Fatalf("expected stored remark link to be unchanged, got %q", got)
	}

	if _, err := engine.AddAttendance(ctx, application.AttendanceInput{PresenceStatus: application.PresencePresent, Confirmed: true}); err != nil {
		t.Fatalf("AddAttendance returned error: %v", err)
	}
	*engine.Attendance()[0].ConfirmedAt = time.Time{}
	if record, _ := engine.TodayAttendance(); record.ConfirmedAt.IsZero() {
		t.Fatalf("expected stored confirmation time to be unchanged")
	}

	gas := 0.4
	if _, err := engine.SaveDraft(ctx, application.ShiftPatch{GasCH4: &gas}); err != nil {
		t.Fatalf("SaveDraft returned error: %v", err)
	}
	gas = 9
	draft, _ := engine.Draft()
	*draft.GasCH4 = 7
	if again, _ := engine.Draft(); *again.GasCH4 != 0.4 {
		t.Fatalf("expected stored draft reading to be unchanged, got %v", *again.GasCH4)
	}
}

func TestWorkerEngineConcurrentTogglesDoNotLoseUpdates(t *testing.T) {
	t.Parallel()

	_, engine := newWorker(t)
	ctx := context.Background()
	task, err := engine.AddTask(ctx, application.TaskInput{Description: "Check pump"})
	if err != nil {
		t.Fatalf("AddTask returned error: %v", err)
	}

	const perGoroutine = 50
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				if _, err := engine.ToggleTask(ctx, task.ID); err != nil {
					t.Errorf("ToggleTask returned error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stored := engine.Tasks()[0]
	if stored.IsDone || stored.CompletedAt != nil {
		t.Fatalf("expected an even number of toggles to leave the task open, got %+v", stored)
	}
}
