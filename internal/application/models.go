package application

import "time"

// ShiftType identifies the shift a record belongs to.
type ShiftType string

const (
	ShiftMorning   ShiftType = "morning"
	ShiftAfternoon ShiftType = "afternoon"
	ShiftNight     ShiftType = "night"
)

func (s ShiftType) valid() bool {
	switch s {
	case ShiftMorning, ShiftAfternoon, ShiftNight:
		return true
	}
	return false
}

// PresenceStatus is what a worker declares when submitting attendance.
type PresenceStatus string

const (
	PresencePresent PresenceStatus = "present"
	PresenceAbsent  PresenceStatus = "absent"
	PresenceTardy   PresenceStatus = "tardy"
)

func (p PresenceStatus) valid() bool {
	switch p {
	case PresencePresent, PresenceAbsent, PresenceTardy:
		return true
	}
	return false
}

// AttendanceStatus is the roster view of a worker's attendance for today.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "present"
	AttendanceAbsent    AttendanceStatus = "absent"
	AttendanceTardy     AttendanceStatus = "tardy"
	AttendanceNotMarked AttendanceStatus = "not-marked"
)

func (a AttendanceStatus) valid() bool {
	switch a {
	case AttendancePresent, AttendanceAbsent, AttendanceTardy, AttendanceNotMarked:
		return true
	}
	return false
}

// ShiftStatus tracks the review state of a shift record.
type ShiftStatus string

const (
	ShiftStatusDraft        ShiftStatus = "draft"
	ShiftStatusSubmitted    ShiftStatus = "submitted"
	ShiftStatusReopened     ShiftStatus = "reopened"
	ShiftStatusAcknowledged ShiftStatus = "acknowledged"
)

// ReportStatus tracks the review state of a section report.
type ReportStatus string

const (
	ReportStatusDraft        ReportStatus = "draft"
	ReportStatusPending      ReportStatus = "pending"
	ReportStatusReopened     ReportStatus = "reopened"
	ReportStatusAcknowledged ReportStatus = "acknowledged"
)

// Severity grades an incident.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// RequiresPhoto reports whether an incident of this severity must carry at
// least one photo. The engines do not enforce it; callers do.
func (s Severity) RequiresPhoto() bool {
	return s == SeverityMedium || s == SeverityHigh
}

// RemarkSeverity grades a supervisor remark.
type RemarkSeverity string

const (
	RemarkInfo     RemarkSeverity = "info"
	RemarkWarning  RemarkSeverity = "warning"
	RemarkCritical RemarkSeverity = "critical"
)

func (r RemarkSeverity) valid() bool {
	switch r {
	case RemarkInfo, RemarkWarning, RemarkCritical:
		return true
	}
	return false
}

// NotificationType controls how urgently a notification is presented.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationUrgent  NotificationType = "urgent"
)

// EquipmentCondition is the outcome of an equipment check.
type EquipmentCondition string

const (
	ConditionOperational  EquipmentCondition = "operational"
	ConditionNeedsRepair  EquipmentCondition = "needs-repair"
	ConditionOutOfService EquipmentCondition = "out-of-service"
)

// EquipmentCheck records the state of one piece of equipment.
type EquipmentCheck struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Condition EquipmentCondition `json:"condition"`
	Photos    []string           `json:"photos"`
	Notes     string             `json:"notes,omitempty"`
}

// PPEItem is one line of the personal protective equipment checklist.
type PPEItem struct {
	Item    string `json:"item"`
	Checked bool   `json:"checked"`
}

// LinkedEntity points a remark or notification at the record it concerns.
type LinkedEntity struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// AuditAction names a lifecycle-affecting action.
type AuditAction string

const (
	AuditCreated      AuditAction = "created"
	AuditSubmitted    AuditAction = "submitted"
	AuditReopened     AuditAction = "reopened"
	AuditAcknowledged AuditAction = "acknowledged"
)

// AuditEntry is an immutable, timestamped description of an action.
type AuditEntry struct {
	ID        string      `json:"id"`
	Action    AuditAction `json:"action"`
	Actor     string      `json:"actor"`
	Details   string      `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// AttendanceRecord is a worker's attendance declaration for one day.
type AttendanceRecord struct {
	ID             string         `json:"id"`
	WorkerID       string         `json:"workerId"`
	Date           string         `json:"date"`
	ShiftType      ShiftType      `json:"shiftType"`
	Area           string         `json:"area"`
	PresenceStatus PresenceStatus `json:"presenceStatus"`
	ConfirmedAt    *time.Time     `json:"confirmedAt,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// AttendanceInput captures caller provided attendance fields. An empty Date
// means today.
type AttendanceInput struct {
	WorkerID       string
	Date           string
	ShiftType      ShiftType
	Area           string
	PresenceStatus PresenceStatus
	Confirmed      bool
	Notes          string
}

// ShiftRecord is a worker-authored log of one shift.
type ShiftRecord struct {
	ID                string           `json:"id"`
	WorkerID          string           `json:"workerId"`
	Date              string           `json:"date"`
	ShiftType         ShiftType        `json:"shiftType"`
	Area              string           `json:"area"`
	Status            ShiftStatus      `json:"status"`
	Equipment         []EquipmentCheck `json:"equipment"`
	GasCH4            *float64         `json:"gasCH4,omitempty"`
	VentilationStatus string           `json:"ventilationStatus,omitempty"`
	PPEChecklist      []PPEItem        `json:"ppeChecklist"`
	TasksDone         string           `json:"tasksDone,omitempty"`
	IncidentIDs       []string         `json:"incidentIds"`
	AuditLog          []AuditEntry     `json:"auditLog"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
	SubmittedAt       *time.Time       `json:"submittedAt,omitempty"`
}

// ShiftInput captures caller provided shift fields. An empty Status means
// draft and an empty Date means today.
type ShiftInput struct {
	WorkerID          string
	Date              string
	ShiftType         ShiftType
	Area              string
	Status            ShiftStatus
	Equipment         []EquipmentCheck
	GasCH4            *float64
	VentilationStatus string
	PPEChecklist      []PPEItem
	TasksDone         string
}

// ShiftPatch is a partial shift. Nil fields are left unchanged.
type ShiftPatch struct {
	Date              *string          `json:"date,omitempty"`
	ShiftType         *ShiftType       `json:"shiftType,omitempty"`
	Area              *string          `json:"area,omitempty"`
	Equipment         []EquipmentCheck `json:"equipment"`
	GasCH4            *float64         `json:"gasCH4,omitempty"`
	VentilationStatus *string          `json:"ventilationStatus,omitempty"`
	PPEChecklist      []PPEItem        `json:"ppeChecklist"`
	TasksDone         *string          `json:"tasksDone,omitempty"`
	IncidentIDs       []string         `json:"incidentIds"`
}

// ShiftDraft is the autosaved, uncommitted shift.
type ShiftDraft struct {
	ShiftPatch
	LastSavedAt time.Time `json:"lastSavedAt"`
}

// SectionReport is a foreman-authored safety and production report.
type SectionReport struct {
	ID                 string           `json:"id"`
	Section            string           `json:"section"`
	ForemanID          string           `json:"foremanId"`
	Date               string           `json:"date"`
	ShiftType          ShiftType        `json:"shiftType"`
	Equipment          []EquipmentCheck `json:"equipment"`
	GasCH4             *float64         `json:"gasCH4,omitempty"`
	VentilationStatus  string           `json:"ventilationStatus,omitempty"`
	TotalWorkers       *int             `json:"totalWorkers,omitempty"`
	PresentCount       *int             `json:"presentCount,omitempty"`
	AbsentCount        *int             `json:"absentCount,omitempty"`
	TardyCount         *int             `json:"tardyCount,omitempty"`
	Remarks            string           `json:"remarks,omitempty"`
	ValidationErrors   []string         `json:"validationErrors"`
	ValidationWarnings []string         `json:"validationWarnings"`
	CanSubmit          bool             `json:"canSubmit"`
	Status             ReportStatus     `json:"status"`
	AuditLog           []AuditEntry     `json:"auditLog"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	LastSavedAt        *time.Time       `json:"lastSavedAt,omitempty"`
	SubmittedAt        *time.Time       `json:"submittedAt,omitempty"`
}

// SectionReportInput captures caller provided section report fields.
type SectionReportInput struct {
	Section           string
	ForemanID         string
	Date              string
	ShiftType         ShiftType
	Equipment         []EquipmentCheck
	GasCH4            *float64
	VentilationStatus string
	TotalWorkers      *int
	PresentCount      *int
	AbsentCount       *int
	TardyCount        *int
	Remarks           string
}

// ReportPatch is a partial section report. Nil fields are left unchanged.
type ReportPatch struct {
	Section           *string          `json:"section,omitempty"`
	Date              *string          `json:"date,omitempty"`
	ShiftType         *ShiftType       `json:"shiftType,omitempty"`
	Equipment         []EquipmentCheck `json:"equipment"`
	GasCH4            *float64         `json:"gasCH4,omitempty"`
	VentilationStatus *string          `json:"ventilationStatus,omitempty"`
	TotalWorkers      *int             `json:"totalWorkers,omitempty"`
	PresentCount      *int             `json:"presentCount,omitempty"`
	AbsentCount       *int             `json:"absentCount,omitempty"`
	TardyCount        *int             `json:"tardyCount,omitempty"`
	Remarks           *string          `json:"remarks,omitempty"`
}

// ReportDraft is the autosaved, uncommitted section report.
type ReportDraft struct {
	ReportPatch
	LastSavedAt time.Time `json:"lastSavedAt"`
}

// IncidentRecord describes a safety incident. Incidents are never modified
// after creation.
type IncidentRecord struct {
	ID            string    `json:"id"`
	ReportedBy    string    `json:"reportedBy"`
	Description   string    `json:"description"`
	Severity      Severity  `json:"severity"`
	Area          string    `json:"area"`
	Photos        []string  `json:"photos"`
	LinkedShiftID string    `json:"linkedShiftId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IncidentInput captures caller provided incident fields.
type IncidentInput struct {
	ReportedBy    string
	Description   string
	Severity      Severity
	Area          string
	Photos        []string
	LinkedShiftID string
}

// RemarkRecord is a supervisor remark received by a worker.
type RemarkRecord struct {
	ID           string         `json:"id"`
	From         string         `json:"from"`
	Message      string         `json:"message"`
	Severity     RemarkSeverity `json:"severity"`
	IsRead       bool           `json:"isRead"`
	CreatedAt    time.Time      `json:"createdAt"`
	LinkedEntity *LinkedEntity  `json:"linkedEntity,omitempty"`
}

// RemarkInput captures caller provided remark fields.
type RemarkInput struct {
	From           string
	TargetWorkerID string
	Message        string
	Severity       RemarkSeverity
	LinkedEntity   *LinkedEntity
}

// TaskRecord is a unit of work assigned to one or more workers.
type TaskRecord struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	AssignedBy  string     `json:"assignedBy"`
	AssignedTo  []string   `json:"assignedTo"`
	IsDone      bool       `json:"isDone"`
	DueDate     string     `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// TaskInput captures caller provided task fields. An empty DueDate means
// today.
type TaskInput struct {
	Description string
	AssignedBy  string
	AssignedTo  []string
	DueDate     string
}

// TaskPatch is a partial task. Nil fields are left unchanged.
type TaskPatch struct {
	Description *string
	IsDone      *bool
	DueDate     *string
}

// Notification is a message addressed to a role or a single worker.
type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	From         string           `json:"from,omitempty"`
	RecipientID  string           `json:"recipientId,omitempty"`
	IsRead       bool             `json:"isRead"`
	CreatedAt    time.Time        `json:"createdAt"`
	LinkedEntity *LinkedEntity    `json:"linkedEntity,omitempty"`
}

// Worker is a roster entry as seen by a foreman.
type Worker struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	EmployeeID           string           `json:"employeeId"`
	Section              string           `json:"section"`
	Role                 string           `json:"role,omitempty"`
	TodayAttendance      AttendanceStatus `json:"todayAttendance,omitempty"`
	AttendanceMarkedAt   *time.Time       `json:"attendanceMarkedAt,omitempty"`
	AttendanceReason     string           `json:"attendanceReason,omitempty"`
	OpenTasksCount       int              `json:"openTasksCount"`
	RecentIncidentsCount int              `json:"recentIncidentsCount"`
	LastActivityAt       *time.Time       `json:"lastActivityAt,omitempty"`
}

// Attendance returns the worker's attendance, treating unset as not-marked.
func (w Worker) Attendance() AttendanceStatus {
	if w.TodayAttendance == "" {
		return AttendanceNotMarked
	}
	return w.TodayAttendance
}

// WorkerFilter narrows roster queries. Empty fields match everything and
// the remaining fields are combined with AND.
type WorkerFilter struct {
	Section string
	Status  AttendanceStatus
	Search  string
}

// AppSettings holds the worker application's preferences.
type AppSettings struct {
	Language             string   `json:"language"`
	TooltipsShown        []string `json:"tooltipsShown"`
	DemoMode             bool     `json:"demoMode"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
}

// SettingsPatch is a partial settings update.
type SettingsPatch struct {
	Language             *string
	DemoMode             *bool
	NotificationsEnabled *bool
}

// ForemanProfile describes the foreman using the device.
type ForemanProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EmployeeID string    `json:"employeeId"`
	Section    string    `json:"section"`
	Phone      string    `json:"phone,omitempty"`
	ShiftType  ShiftType `json:"shiftType,omitempty"`
}

// ProfilePatch is a partial profile update.
type ProfilePatch struct {
	Name       *string
	EmployeeID *string
	Section    *string
	Phone      *string
	ShiftType  *ShiftType
}

// DashboardStats are the foreman dashboard KPIs.
type DashboardStats struct {
	TotalWorkers         int `json:"totalWorkers"`
	Present              int `json:"present"`
	Absent               int `json:"absent"`
	Tardy                int `json:"tardy"`
	NotMarked            int `json:"notMarked"`
	AttendancePercentage int `json:"attendancePercentage"`
	OpenIncidents        int `json:"openIncidents"`
	OpenTasks            int `json:"openTasks"`
	DraftReports         int `json:"draftReports"`
	PendingReports       int `json:"pendingReports"`
	ReopenedReports      int `json:"reopenedReports"`
}
