package handler

import (
	"vidgogo/backend/internal/pairhub"
	"vidgogo/backend/internal/storage"
)

// Handler bundles the dependencies the HTTP layer needs.
type Handler struct {
	Hub       *pairhub.ManagerService
	Storage   storage.Storage
	JWTSecret []byte
}

func NewHandler(hub *pairhub.ManagerService, s storage.Storage, jwtSecret string) *Handler {
	return &Handler{Hub: hub, Storage: s, JWTSecret: []byte(jwtSecret)}
}
