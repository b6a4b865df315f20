package views

import (
	"errors"

	"github.com/tgienger/taskmgr/internal/apiclient"
	"github.com/tgienger/taskmgr/internal/models"
	"github.com/tgienger/taskmgr/internal/ui/styles"
	"github.com/tgienger/taskmgr/internal/viewstate"
)

// SelectedProject signals to open the detail view of a project
type SelectedProject struct {
	Project models.Project
}

// BackToProjects signals to go back to project list. Notice, when set, is
// shown on the list.
type BackToProjects struct {
	Notice *viewstate.Notice
}

// ProjectDeleted is sent by the detail view once its project is gone
type ProjectDeleted struct {
	ID int64
}

// LoggedIn is sent by the login view after a successful login or register
type LoggedIn struct {
	User models.User
}

// LogoutRequested asks the app to end the session
type LogoutRequested struct{}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// errorText is the line shown under a form when a submit fails
func errorText(err error) string {
	var (
		verr   *viewstate.ValidationError
		rej    *viewstate.RejectedError
		apiErr *apiclient.Error
	)
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &rej):
		return rej.Message
	case errors.As(err, &apiErr):
		return apiErr.Notice()
	case errors.Is(err, viewstate.ErrBusy):
		return "Please wait for the current action to finish"
	}
	return err.Error()
}

func renderNotice(s *styles.Styles, n *viewstate.Notice) string {
	if n == nil {
		return ""
	}
	switch n.Level {
	case viewstate.NoticeError:
		return s.NoticeError.Render(n.Text)
	case viewstate.NoticeSuccess:
		return s.NoticeSuccess.Render(n.Text)
	}
	return s.NoticeInfo.Render(n.Text)
}
