package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shivanand-vn/SVPharma-sub000/api/middleware"
	"github.com/shivanand-vn/SVPharma-sub000/pkg/enums"
	pkgerrors "github.com/shivanand-vn/SVPharma-sub000/pkg/errors"
)

// requesterID pulls the authenticated user id out of the request context.
func requesterID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

func requesterRole(r *http.Request) enums.ActorRole {
	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return ""
	}
	return role
}
