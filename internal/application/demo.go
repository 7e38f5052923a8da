package application

import "time"

// DemoWorkerID is the worker the demo worker fixtures belong to.
const DemoWorkerID = "w-001"

// DemoForemanID is the foreman the demo foreman fixtures belong to.
const DemoForemanID = "f-001"

type workerDemo struct {
	attendance []AttendanceRecord
	shifts     []ShiftRecord
	incidents  []IncidentRecord
	remarks    []RemarkRecord
	tasks      []TaskRecord
}

func newWorkerDemo(now time.Time, newID func() string) workerDemo {
	audit := NewAuditLogger(newID, func() time.Time { return now })
	today := dayKey(now)
	yesterday := dayKey(now.AddDate(0, 0, -1))
	tomorrow := dayKey(now.AddDate(0, 0, 1))
	gas := 0.4

	previous := ShiftRecord{
		ID:        newID(),
		WorkerID:  DemoWorkerID,
		Date:      yesterday,
		ShiftType: ShiftMorning,
		Area:      "Panel 3 North",
		Status:    ShiftStatusSubmitted,
		Equipment: []EquipmentCheck{
			{ID: newID(), Name: "Continuous miner", Condition: ConditionOperational, Photos: []string{}},
			{ID: newID(), Name: "Roof bolter", Condition: ConditionNeedsRepair, Photos: []string{"photos/roof-bolter.jpg"}, Notes: "Hydraulic leak"},
		},
		GasCH4:            &gas,
		VentilationStatus: "adequate",
		PPEChecklist: []PPEItem{
			{Item: "Helmet", Checked: true},
			{Item: "Self-rescuer", Checked: true},
			{Item: "Cap lamp", Checked: true},
		},
		TasksDone:   "Cut 12m on face 2, bolted 6 rows",
		IncidentIDs: []string{},
		CreatedAt:   now.Add(-26 * time.Hour),
		UpdatedAt:   now.Add(-18 * time.Hour),
		SubmittedAt: timePtr(now.Add(-18 * time.Hour)),
	}
	previous.AuditLog = audit.Append(nil, AuditCreated, DemoWorkerID, "")
	previous.AuditLog = audit.Append(previous.AuditLog, AuditSubmitted, DemoWorkerID, "")

	current := ShiftRecord{
		ID:        newID(),
		WorkerID:  DemoWorkerID,
		Date:      today,
		ShiftType: ShiftMorning,
		Area:      "Panel 3 North",
		Status:    ShiftStatusDraft,
		Equipment: []EquipmentCheck{},
		PPEChecklist: []PPEItem{
			{Item: "Helmet", Checked: true},
			{Item: "Self-rescuer", Checked: false},
			{Item: "Cap lamp", Checked: true},
		},
		IncidentIDs: []string{},
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	current.AuditLog = audit.Append(nil, AuditCreated, DemoWorkerID, "")

	slip := IncidentRecord{
		ID:            newID(),
		ReportedBy:    DemoWorkerID,
		Description:   "Loose rock near belt transfer point",
		Severity:      SeverityLow,
		Area:          "Panel 3 North",
		Photos:        []string{},
		LinkedShiftID: previous.ID,
		CreatedAt:     now.Add(-22 * time.Hour),
	}
	previous.IncidentIDs = append(previous.IncidentIDs, slip.ID)

	fan := IncidentRecord{
		ID:          newID(),
		ReportedBy:  DemoWorkerID,
		Description: "Auxiliary fan tripped twice",
		Severity:    SeverityMedium,
		Area:        "Panel 3 North",
		Photos:      []string{"photos/aux-fan.jpg"},
		CreatedAt:   now.Add(-1 * time.Hour),
	}

	return workerDemo{
		attendance: []AttendanceRecord{{
			ID:             newID(),
			WorkerID:       DemoWorkerID,
			Date:           today,
			ShiftType:      ShiftMorning,
			Area:           "Panel 3 North",
			PresenceStatus: PresencePresent,
			ConfirmedAt:    timePtr(now.Add(-3 * time.Hour)),
			CreatedAt:      now.Add(-3 * time.Hour),
		}},
		shifts:    []ShiftRecord{previous, current},
		incidents: []IncidentRecord{slip, fan},
		remarks: []RemarkRecord{
			{
				ID:        newID(),
				From:      DemoForemanID,
				Message:   "Good work on the bolting rows yesterday",
				Severity:  RemarkInfo,
				IsRead:    true,
				CreatedAt: now.Add(-20 * time.Hour),
			},
			{
				ID:           newID(),
				From:         DemoForemanID,
				Message:      "Carry your self-rescuer at all times",
				Severity:     RemarkWarning,
				CreatedAt:    now.Add(-30 * time.Minute),
				LinkedEntity: &LinkedEntity{ID: current.ID, Type: entityShift},
			},
		},
		tasks: []TaskRecord{
			{
				ID:          newID(),
				Description: "Inspect conveyor belt rollers",
				AssignedBy:  DemoForemanID,
				AssignedTo:  []string{DemoWorkerID},
				DueDate:     today,
				CreatedAt:   now.Add(-4 * time.Hour),
			},
			{
				ID:          newID(),
				Description: "Record gas readings at face 2",
				AssignedBy:  DemoForemanID,
				AssignedTo:  []string{DemoWorkerID},
				IsDone:      true,
				DueDate:     today,
				CreatedAt:   now.Add(-4 * time.Hour),
				CompletedAt: timePtr(now.Add(-1 * time.Hour)),
			},
			{
				ID:          newID(),
				Description: "Refresh first aid kit at refuge bay",
				AssignedBy:  DemoForemanID,
				AssignedTo:  []string{DemoWorkerID},
				DueDate:     tomorrow,
				CreatedAt:   now.Add(-4 * time.Hour),
			},
		},
	}
}

type foremanDemo struct {
	workers       []Worker
	reports       []SectionReport
	notifications []Notification
	profile       ForemanProfile
}

func newForemanDemo(now time.Time, newID func() string, audit *AuditLogger) foremanDemo {
	marked := timePtr(now.Add(-3 * time.Hour))
	worker := func(id, name, employeeID, section string, status AttendanceStatus, tasks, incidents int) Worker {
		w := Worker{
			ID:                   id,
			Name:                 name,
			EmployeeID:           employeeID,
			Section:              section,
			Role:                 "miner",
			TodayAttendance:      status,
			OpenTasksCount:       tasks,
			RecentIncidentsCount: incidents,
		}
		if status != "" {
			w.AttendanceMarkedAt = marked
			w.LastActivityAt = marked
		}
		return w
	}

	gas := 0.6
	total, present, absent, tardy := 3, 3, 0, 0
	report := SectionReport{
		ID:                newID(),
		Section:           "Section A",
		ForemanID:         DemoForemanID,
		Date:              dayKey(now),
		ShiftType:         ShiftMorning,
		Equipment:         []EquipmentCheck{{ID: newID(), Name: "Main fan", Condition: ConditionOperational, Photos: []string{}}},
		GasCH4:            &gas,
		VentilationStatus: "adequate",
		TotalWorkers:      &total,
		PresentCount:      &present,
		AbsentCount:       &absent,
		TardyCount:        &tardy,
		Status:            ReportStatusDraft,
		CreatedAt:         now.Add(-1 * time.Hour),
		UpdatedAt:         now.Add(-1 * time.Hour),
	}
	report = report.withValidation()
	report.AuditLog = audit.Append(nil, AuditCreated, DemoForemanID, "")

	return foremanDemo{
		workers: []Worker{
			worker("w-001", "Ramesh Kumar", "EMP-1001", "Section A", AttendancePresent, 2, 2),
			worker("w-002", "Suresh Patel", "EMP-1002", "Section A", AttendancePresent, 1, 0),
			worker("w-003", "Mahesh Singh", "EMP-1003", "Section B", AttendanceAbsent, 0, 0),
			worker("w-004", "Anil Verma", "EMP-1004", "Section B", AttendancePresent, 1, 1),
			worker("w-005", "Rajesh Yadav", "EMP-1005", "Section C", AttendanceTardy, 0, 0),
			worker("w-006", "Vikram Sharma", "EMP-1006", "Section A", AttendancePresent, 3, 0),
			worker("w-007", "Deepak Gupta", "EMP-1007", "Section C", "", 0, 0),
			worker("w-008", "Sanjay Mishra", "EMP-1008", "Section B", AttendancePresent, 1, 0),
		},
		reports: []SectionReport{report},
		notifications: []Notification{
			{
				ID:        newID(),
				Type:      NotificationWarning,
				Title:     "Incident reported",
				Message:   "Panel 3 North: Auxiliary fan tripped twice",
				From:      "w-001",
				CreatedAt: now.Add(-1 * time.Hour),
			},
			{
				ID:        newID(),
				Type:      NotificationInfo,
				Title:     "Shift roster published",
				Message:   "Next week's roster is available",
				From:      "mine-office",
				IsRead:    true,
				CreatedAt: now.Add(-24 * time.Hour),
			},
		},
		profile: ForemanProfile{
			ID:         DemoForemanID,
			Name:       "Prakash Rao",
			EmployeeID: "EMP-2001",
			Section:    "Section A",
			Phone:      "+91 98450 00000",
			ShiftType:  ShiftMorning,
		},
	}
}
