package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/peerhub/peerhub/pkg/response"
)

// notFoundOr maps gorm's record-not-found to a 404 app error and passes
// every other database error through unchanged.
func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFound(message)
	}
	return err
}

func errProjectNotFound(err error) error { return notFoundOr(err, "project not found") }

// errProjectHidden is returned when a project exists but the caller may not
// see it. Indistinguishable from a missing project on purpose.
func errProjectHidden() error { return response.NewNotFound("project not found") }

func errUploadNotFound(err error) error { return notFoundOr(err, "file not found") }

func errUserNotFound(err error) error { return notFoundOr(err, "user not found") }
