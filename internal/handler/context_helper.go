package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfh-scheduler/internal/middleware"
	"github.com/noah-isme/wfh-scheduler/internal/models"
	"github.com/noah-isme/wfh-scheduler/internal/service"
	appErrors "github.com/noah-isme/wfh-scheduler/pkg/errors"
)

type workspaceProvider interface {
	Get(actor models.ActingUser) *service.Workspace
}

func actorFromContext(c *gin.Context) (models.ActingUser, error) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok || actor.StaffID <= 0 {
		return models.ActingUser{}, appErrors.ErrUnauthorized
	}
	return actor, nil
}

func workspaceFromContext(c *gin.Context, workspaces workspaceProvider) (*service.Workspace, error) {
	actor, err := actorFromContext(c)
	if err != nil {
		return nil, err
	}
	return workspaces.Get(actor), nil
}

func requestIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "request id must be a positive integer")
	}
	return id, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
