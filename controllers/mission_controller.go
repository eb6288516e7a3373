package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/utils"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
)

// MissionController serves the daily mission flow.
type MissionController struct {
	svc *gamification.Service
}

// NewMissionController creates a new controller instance.
func NewMissionController(svc *gamification.Service) *MissionController {
	return &MissionController{svc: svc}
}

// Catalog lists every mission, active or not.
func (m *MissionController) Catalog(ctx *gin.Context) {
	missions, err := m.svc.Missions(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err, 50020, "failed to load missions")
		return
	}
	utils.Success(ctx, gin.H{"missions": missions})
}

// Today returns today's assignment, creating it on first request.
func (m *MissionController) Today(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	today, err := m.svc.TodayAssignment(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50021, "failed to assign mission")
		return
	}
	utils.Success(ctx, today)
}

// History lists past assignments, newest first.
func (m *MissionController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	limit := queryInt(ctx, "limit", defaultHistoryLimit, maxHistoryLimit)
	items, err := m.svc.AssignmentHistory(ctx.Request.Context(), userID, limit)
	if err != nil {
		respondError(ctx, err, 50022, "failed to load history")
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Complete finishes a pending assignment and returns the credited ledger and any new badges.
func (m *MissionController) Complete(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	res, err := m.svc.CompleteAssignment(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err, 50023, "failed to complete mission")
		return
	}
	utils.Success(ctx, res)
}

// Skip gives up today's assignment and resets the streak.
func (m *MissionController) Skip(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	a, err := m.svc.SkipAssignment(ctx.Request.Context(), userID, id)
	if err != nil {
		respondError(ctx, err, 50024, "failed to skip mission")
		return
	}
	utils.Success(ctx, gin.H{"assignment": a})
}
