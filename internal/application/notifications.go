package application

import (
	"context"
	"fmt"
)

// Notification constructors. They build records from domain events and
// leave ID and CreatedAt to the engine that stores them.

// NotificationSink accepts notifications raised by another engine.
type NotificationSink interface {
	AddNotification(ctx context.Context, n Notification) (Notification, error)
}

const (
	entityIncident      = "incident"
	entityShift         = "shift"
	entityTask          = "task"
	entitySectionReport = "section_report"
)

// IncidentNotification scales urgency with severity: high incidents are
// urgent, everything else is a warning.
func IncidentNotification(incident IncidentRecord) Notification {
	n := Notification{
		Type:    NotificationWarning,
		Title:   "Incident reported",
		Message: incidentMessage(incident),
		From:    incident.ReportedBy,
	}
	if incident.Severity == SeverityHigh {
		n.Type = NotificationUrgent
		n.Title = "High severity incident reported"
	}
	switch {
	case incident.ID != "":
		n.LinkedEntity = &LinkedEntity{ID: incident.ID, Type: entityIncident}
	case incident.LinkedShiftID != "":
		n.LinkedEntity = &LinkedEntity{ID: incident.LinkedShiftID, Type: entityShift}
	}
	return n
}

func incidentMessage(incident IncidentRecord) string {
	if incident.Area == "" {
		return incident.Description
	}
	return fmt.Sprintf("%s: %s", incident.Area, incident.Description)
}

// RemarkNotification addresses a remark to the worker it targets.
func RemarkNotification(remark RemarkInput) Notification {
	n := Notification{
		Type:         NotificationInfo,
		Title:        "New remark",
		Message:      remark.Message,
		From:         remark.From,
		RecipientID:  remark.TargetWorkerID,
		LinkedEntity: remark.LinkedEntity,
	}
	switch remark.Severity {
	case RemarkCritical:
		n.Type = NotificationUrgent
		n.Title = "Critical remark"
	case RemarkWarning:
		n.Type = NotificationWarning
		n.Title = "Safety remark"
	}
	return n
}

// TaskAssignedNotification tells one assignee about a task.
func TaskAssignedNotification(task TaskRecord, workerID string) Notification {
	message := task.Description
	if task.DueDate != "" {
		message = fmt.Sprintf("%s (due %s)", task.Description, task.DueDate)
	}
	return Notification{
		Type:         NotificationInfo,
		Title:        "New task assigned",
		Message:      message,
		From:         task.AssignedBy,
		RecipientID:  workerID,
		LinkedEntity: &LinkedEntity{ID: task.ID, Type: entityTask},
	}
}

// ReportSubmittedNotification announces a submitted section report.
func ReportSubmittedNotification(report SectionReport) Notification {
	return Notification{
		Type:         NotificationSuccess,
		Title:        "Section report submitted",
		Message:      fmt.Sprintf("%s report for %s (%s shift) is pending review", report.Section, report.Date, report.ShiftType),
		From:         report.ForemanID,
		LinkedEntity: &LinkedEntity{ID: report.ID, Type: entitySectionReport},
	}
}

// ReportReopenedNotification tells the author a report needs changes.
func ReportReopenedNotification(report SectionReport, by, reason string) Notification {
	message := fmt.Sprintf("%s report for %s was reopened", report.Section, report.Date)
	if reason != "" {
		message += ": " + reason
	}
	return Notification{
		Type:         NotificationWarning,
		Title:        "Section report reopened",
		Message:      message,
		From:         by,
		RecipientID:  report.ForemanID,
		LinkedEntity: &LinkedEntity{ID: report.ID, Type: entitySectionReport},
	}
}

// ReportAcknowledgedNotification tells the author a report was accepted.
func ReportAcknowledgedNotification(report SectionReport, by string) Notification {
	return Notification{
		Type:         NotificationSuccess,
		Title:        "Section report acknowledged",
		Message:      fmt.Sprintf("%s report for %s was acknowledged", report.Section, report.Date),
		From:         by,
		RecipientID:  report.ForemanID,
		LinkedEntity: &LinkedEntity{ID: report.ID, Type: entitySectionReport},
	}
}

// ShiftSubmittedNotification announces a worker's submitted shift log.
func ShiftSubmittedNotification(shift ShiftRecord) Notification {
	return Notification{
		Type:         NotificationInfo,
		Title:        "Shift log submitted",
		Message:      fmt.Sprintf("%s shift in %s on %s", shift.ShiftType, shift.Area, shift.Date),
		From:         shift.WorkerID,
		LinkedEntity: &LinkedEntity{ID: shift.ID, Type: entityShift},
	}
}
