package domain

// Role is one of a fixed hierarchy. Order matters for approval scope:
// Employee < TeamLeader < Manager < Admin < Superadmin.
type Role string

const (
	RoleEmployee   Role = "Employee"
	RoleTeamLeader Role = "Team Leader"
	RoleManager    Role = "Manager"
	RoleAdmin      Role = "Admin"
	RoleSuperadmin Role = "Superadmin"
)

// Status is the lifecycle of a submitted record. Approved and Rejected
// are terminal.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Actor is a user of the system. ManagerID links upward in the approval
// chain; it may point at any actor above, not necessarily the immediate
// manager, and may dangle after that actor is removed.
type Actor struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              Role   `json:"role" enum:"Employee,Team Leader,Manager,Admin,Superadmin"`
	ManagerID         int64  `json:"managerId,omitempty"`
	Company           string `json:"company,omitempty"`
	EmployeeID        string `json:"employeeId,omitempty"`
	Designation       string `json:"designation,omitempty"`
	DOB               string `json:"dob,omitempty"`
	Phone             string `json:"phone,omitempty"`
	Address           string `json:"address,omitempty"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
	BannerURL         string `json:"bannerUrl,omitempty"`
}

// WorkEntry is one line of work inside a timesheet project block.
type WorkEntry struct {
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
}

// ProjectWork groups the work entries of one timesheet against one project.
type ProjectWork struct {
	ProjectID   int64       `json:"projectId"`
	WorkEntries []WorkEntry `json:"workEntries"`
}

// Timesheet is a dated work submission.
type Timesheet struct {
	ID          int64         `json:"id"`
	UserID      int64         `json:"userId"`
	Date        string        `json:"date" format:"date"`
	InTime      string        `json:"inTime,omitempty"`
	OutTime     string        `json:"outTime,omitempty"`
	ProjectWork []ProjectWork `json:"projectWork"`
	Status      Status        `json:"status" enum:"Pending,Approved,Rejected"`
	ApproverID  int64         `json:"approverId,omitempty"`
}

// Hours returns the total hours recorded against one project.
func (t Timesheet) Hours(projectID int64) float64 {
	var sum float64
	for _, pw := range t.ProjectWork {
		if pw.ProjectID != projectID {
			continue
		}
		for _, e := range pw.WorkEntries {
			sum += e.Hours
		}
	}
	return sum
}

// TotalHours sums every work entry on the sheet. Blocks may repeat a
// project, so each entry counts exactly once.
func (t Timesheet) TotalHours() float64 {
	var sum float64
	for _, pw := range t.ProjectWork {
		for _, e := range pw.WorkEntries {
			sum += e.Hours
		}
	}
	return sum
}

// LeaveType distinguishes full and half day leave entries.
type LeaveType string

const (
	LeaveFullDay LeaveType = "Full Day"
	LeaveHalfDay LeaveType = "Half Day"
)

// LeaveEntry is one dated entry of a leave request.
type LeaveEntry struct {
	Date           string    `json:"date" format:"date"`
	LeaveType      LeaveType `json:"leaveType" enum:"Full Day,Half Day"`
	HalfDaySession string    `json:"halfDaySession,omitempty" enum:"First Half,Second Half"`
}

// LeaveRequest is a dated leave submission.
type LeaveRequest struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"userId"`
	LeaveEntries []LeaveEntry `json:"leaveEntries"`
	Reason       string       `json:"reason"`
	Status       Status       `json:"status" enum:"Pending,Approved,Rejected"`
	ApproverID   int64        `json:"approverId,omitempty"`
}

// Submittable is the common surface of the two record variants that flow
// through the approval workflow. Implementations are explicit tagged
// variants, never recovered by shape inspection.
type Submittable interface {
	SubmittableID() int64
	OwnerID() int64
	SubmitStatus() Status
	Approver() int64
}

func (t Timesheet) SubmittableID() int64 { return t.ID }
func (t Timesheet) OwnerID() int64       { return t.UserID }
func (t Timesheet) SubmitStatus() Status { return t.Status }
func (t Timesheet) Approver() int64      { return t.ApproverID }

func (l LeaveRequest) SubmittableID() int64 { return l.ID }
func (l LeaveRequest) OwnerID() int64       { return l.UserID }
func (l LeaveRequest) SubmitStatus() Status { return l.Status }
func (l LeaveRequest) Approver() int64      { return l.ApproverID }

// ProjectStatus is the authored project lifecycle.
type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "Not Started"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectOnHold     ProjectStatus = "On Hold"
	ProjectCompleted  ProjectStatus = "Completed"
)

// Project groups work for a team. ActualHours is derived from approved
// timesheets; user-supplied values are overwritten on recompute.
type Project struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	ManagerID      int64         `json:"managerId"`
	TeamLeaderID   int64         `json:"teamLeaderId,omitempty"`
	TeamIDs        []int64       `json:"teamIds"`
	CustomerName   string        `json:"customerName,omitempty"`
	JobName        string        `json:"jobName,omitempty"`
	EstimatedHours float64       `json:"estimatedHours"`
	ActualHours    float64       `json:"actualHours"`
	Company        string        `json:"company,omitempty"`
	Status         ProjectStatus `json:"status" enum:"Not Started,In Progress,On Hold,Completed"`
}

// HasMember reports whether the actor is on the project team.
func (p Project) HasMember(actorID int64) bool {
	for _, id := range p.TeamIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// TaskStatus is the task board lifecycle.
type TaskStatus string

const (
	TaskToDo       TaskStatus = "To Do"
	TaskInProgress TaskStatus = "In Progress"
	TaskDone       TaskStatus = "Done"
)

// TaskImportance ranks tasks.
type TaskImportance string

const (
	ImportanceLow    TaskImportance = "Low"
	ImportanceMedium TaskImportance = "Medium"
	ImportanceHigh   TaskImportance = "High"
)

// Task is a unit of project work assignable to several actors.
type Task struct {
	ID             int64          `json:"id"`
	ProjectID      int64          `json:"projectId"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	AssignedTo     []int64        `json:"assignedTo"`
	Status         TaskStatus     `json:"status" enum:"To Do,In Progress,Done"`
	Importance     TaskImportance `json:"importance,omitempty" enum:"Low,Medium,High"`
	Deadline       string         `json:"deadline,omitempty" format:"date"`
	CompletionDate string         `json:"completionDate,omitempty" format:"date"`
}

// Notification is a persisted per-actor message. Dismissal deletes the
// record outright; Read is the only soft flag.
type Notification struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"userId"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Read           bool   `json:"read"`
	Dismissed      bool   `json:"dismissed"`
	LinkTo         string `json:"linkTo,omitempty"`
	CreatedAt      string `json:"createdAt" format:"date-time"`
	IsAnnouncement bool   `json:"isAnnouncement,omitempty"`
}

// Toast is an ephemeral on-screen message. Never persisted or synced;
// consumers drop it after a fixed display delay.
type Toast struct {
	ID      int64  `json:"id"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// BestEmployee is a periodic designation synced as its own collection.
type BestEmployee struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Period string `json:"period" enum:"month,year"`
}

const (
	BestEmployeePeriodMonth = "month"
	BestEmployeePeriodYear  = "year"
)

// Event is one entry of the remote store's append-only audit feed.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	Collection string `json:"collection"`
	RecordID   int64  `json:"recordId,omitempty"`
	ActorID    int64  `json:"actorId"`
	Payload    string `json:"payload,omitempty"`
}

// EventHead is the cursor position of the audit feed, used to start a
// tail at "now" instead of replaying history.
type EventHead struct {
	ID int64 `json:"id"`
}
