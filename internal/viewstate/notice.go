package viewstate

import (
	"errors"

	"github.com/tgienger/taskmgr/internal/apiclient"
)

type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient message for the user
type Notice struct {
	Level NoticeLevel
	Text  string
}

// describe renders err with its status and server message when it has one
func describe(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Notice()
	}
	return "Error: " + err.Error()
}
