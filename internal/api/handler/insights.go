package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/pawlogic/internal/api/response"
	"github.com/kiranshivaraju/pawlogic/internal/store"
	"github.com/kiranshivaraju/pawlogic/pkg/models"
)

// InsightStore is the part of store.Store the insight handlers use.
type InsightStore interface {
	GetPet(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Pet, error)
	ListInsights(ctx context.Context, filter store.InsightFilter) ([]*models.Insight, error)
	InsightSummary(ctx context.Context, petID uuid.UUID) (*store.InsightCounts, error)
	GetInsight(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Insight, error)
	SetInsightRead(ctx context.Context, id uuid.UUID, userID uuid.UUID, read bool) (*models.Insight, error)
}

// NewListInsightsHandler returns an http.HandlerFunc for
// GET /api/v1/pets/{petID}/insights?unread_only=.
func NewListInsightsHandler(s InsightStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		petID, ok := pathUUID(w, r, "petID")
		if !ok {
			return
		}

		unreadOnly := false
		if raw := r.URL.Query().Get("unread_only"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				response.BadRequest(w, "unread_only must be a boolean")
				return
			}
			unreadOnly = v
		}

		if _, err := s.GetPet(r.Context(), petID, userID); err != nil {
			writePetLookupError(w, err)
			return
		}

		insights, err := s.ListInsights(r.Context(), store.InsightFilter{PetID: petID, UnreadOnly: unreadOnly})
		if err != nil {
			response.Internal(w)
			return
		}
		if insights == nil {
			insights = []*models.Insight{}
		}
		response.JSON(w, insights)
	}
}

// NewInsightSummaryHandler returns an http.HandlerFunc for
// GET /api/v1/pets/{petID}/insights/summary.
func NewInsightSummaryHandler(s InsightStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		petID, ok := pathUUID(w, r, "petID")
		if !ok {
			return
		}
		if _, err := s.GetPet(r.Context(), petID, userID); err != nil {
			writePetLookupError(w, err)
			return
		}

		counts, err := s.InsightSummary(r.Context(), petID)
		if err != nil {
			response.Internal(w)
			return
		}
		response.JSON(w, counts)
	}
}

// NewGetInsightHandler returns an http.HandlerFunc for
// GET /api/v1/insights/{insightID}.
func NewGetInsightHandler(s InsightStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "insightID")
		if !ok {
			return
		}

		insight, err := s.GetInsight(r.Context(), id, userID)
		if err != nil {
			writeInsightError(w, err)
			return
		}
		response.JSON(w, insight)
	}
}

// NewMarkInsightHandler returns an http.HandlerFunc for
// PATCH /api/v1/insights/{insightID}. The body {"is_read": bool} is
// optional and defaults to marking the insight read.
func NewMarkInsightHandler(s InsightStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "insightID")
		if !ok {
			return
		}

		var req struct {
			IsRead *bool `json:"is_read"`
		}
		if !decodeBody(w, r, &req, true) {
			return
		}
		read := true
		if req.IsRead != nil {
			read = *req.IsRead
		}

		insight, err := s.SetInsightRead(r.Context(), id, userID, read)
		if err != nil {
			writeInsightError(w, err)
			return
		}
		response.JSON(w, insight)
	}
}

func writeInsightError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(w, "INSIGHT_NOT_FOUND", "Insight not found")
		return
	}
	response.Internal(w)
}
