package models

// User is the profile kept alongside the session token
type User struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Project represents a task management project as served by the API.
// The task counters and progress are server aggregates that the client
// mutates locally between refetches.
type Project struct {
	ID                 int64   `json:"id"`
	Title              string  `json:"title"`
	Description        string  `json:"description,omitempty"`
	TotalTasks         int     `json:"totalTasks"`
	CompletedTasks     int     `json:"completedTasks"`
	ProgressPercentage float64 `json:"progressPercentage"`
}

// Progress is the summary returned by the project progress endpoint
type Progress struct {
	ProjectID          int64   `json:"projectId,omitempty"`
	TotalTasks         int     `json:"totalTasks"`
	CompletedTasks     int     `json:"completedTasks"`
	ProgressPercentage float64 `json:"progressPercentage"`
}

// Task represents a single task within a project
type Task struct {
	ID          int64  `json:"id"`
	ProjectID   int64  `json:"projectId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     Date   `json:"dueDate"`
	Completed   bool   `json:"completed"`
}

// Overdue reports whether an open task is past its due date
func (t Task) Overdue(today Date) bool {
	if t.Completed || t.DueDate.IsZero() {
		return false
	}
	return t.DueDate.Before(today)
}

// DueSoon reports whether an open task is due within the next three days,
// today included.
func (t Task) DueSoon(today Date) bool {
	if t.Completed || t.DueDate.IsZero() || t.Overdue(today) {
		return false
	}
	days := today.DaysUntil(t.DueDate)
	return days >= 0 && days <= DueSoonDays
}

// DueSoonDays is the window, in days, for DueSoon
const DueSoonDays = 3
