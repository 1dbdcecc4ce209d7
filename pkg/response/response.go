package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timely/timetabling/pkg/model"
	appErrors "github.com/timely/timetabling/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the response contract of the timetable endpoint.
type Envelope struct {
	Status      string         `json:"status"`
	Schedule    []model.Record `json:"schedule,omitempty"`
	Message     string         `json:"message,omitempty"`
	Code        string         `json:"code,omitempty"`
	Hints       []string       `json:"hints,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
}

// Schedule sends a generated schedule. An empty schedule is still rendered
// as an empty list.
func Schedule(c *gin.Context, schedule []model.Record, diagnostics []string) {
	if schedule == nil {
		schedule = []model.Record{}
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, struct {
		Status      string         `json:"status"`
		Schedule    []model.Record `json:"schedule"`
		Diagnostics []string       `json:"diagnostics,omitempty"`
	}{StatusSuccess, schedule, diagnostics})
}

// Error sends an error response converting the error to the common structure.
// Internal errors never expose their cause.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	envelope := Envelope{
		Status:  StatusError,
		Message: appErr.Message,
	}
	if appErr.Status < http.StatusInternalServerError {
		envelope.Code = appErr.Code
		envelope.Hints = appErr.Details.Hints
		envelope.Diagnostics = appErr.Details.Diagnostics
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, envelope)
}
