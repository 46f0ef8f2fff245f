package itinerary

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/auth"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/pipeline"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GenerateItinerary(w http.ResponseWriter, r *http.Request)
	GetItinerary(w http.ResponseWriter, r *http.Request)
	GetItineraryCost(w http.ResponseWriter, r *http.Request)
	ListMyItineraries(w http.ResponseWriter, r *http.Request)
	ClaimItinerary(w http.ResponseWriter, r *http.Request)
	SaveItinerary(w http.ResponseWriter, r *http.Request)
	UpdateItineraryDays(w http.ResponseWriter, r *http.Request)
	SetItineraryVisibility(w http.ResponseWriter, r *http.Request)
	DeleteItinerary(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{logger: logger, service: service}
}

type UpdateDaysRequest struct {
	Days []types.Day `json:"days"`
}

type VisibilityRequest struct {
	IsPublic bool `json:"isPublic"`
}

// optionalUser returns the caller id when the request carried a valid token.
func optionalUser(r *http.Request) *uuid.UUID {
	s, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func (h *HandlerImpl) requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	s, ok := auth.GetUserIDFromContext(r.Context())
	if !ok || s == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID format")
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps service errors onto HTTP statuses.
func (h *HandlerImpl) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidPreferences), errors.Is(err, ErrInvalidDays):
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Itinerary not found")
	case errors.Is(err, ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "You do not have access to this itinerary")
	case errors.Is(err, ErrAlreadyClaimed):
		api.ErrorResponse(w, r, http.StatusConflict, "Itinerary has already been claimed")
	case errors.Is(err, pipeline.ErrGeneration):
		api.ErrorResponse(w, r, http.StatusBadGateway, "Itinerary generation failed, please try again")
	default:
		h.logger.ErrorContext(r.Context(), "Itinerary request failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error: "+err.Error())
	}
}

// GenerateItinerary godoc
// @Summary      Generate Itinerary
// @Description  Generates an enriched itinerary. Anonymous callers get a draft that can be claimed later.
// @Tags         Itineraries
// @Accept       json
// @Produce      json
// @Param        prefs body types.Preferences true "Trip preferences"
// @Success      201 {object} types.Itinerary
// @Failure      400 {object} types.Response "Invalid preferences"
// @Failure      429 {object} types.Response "Too many generations"
// @Failure      502 {object} types.Response "Generation failed"
// @Router       /itineraries [post]
func (h *HandlerImpl) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GenerateItinerary")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GenerateItinerary"))

	var prefs types.Preferences
	if err := api.DecodeJSONBody(w, r, &prefs); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("destination", prefs.Destination))

	it, err := h.service.Generate(ctx, optionalUser(r), prefs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		h.writeError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Itinerary generated")
	api.WriteJSONResponse(w, r, http.StatusCreated, it)
}

// GetItinerary godoc
// @Summary      Get Itinerary
// @Tags         Itineraries
// @Produce      json
// @Param        id path string true "Itinerary ID"
// @Success      200 {object} types.Itinerary
// @Failure      403 {object} types.Response
// @Failure      404 {object} types.Response
// @Router       /itineraries/{id} [get]
func (h *HandlerImpl) GetItinerary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := h.service.Get(r.Context(), id, optionalUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// GetItineraryCost godoc
// @Summary      Estimate Itinerary Cost
// @Tags         Itineraries
// @Produce      json
// @Param        id path string true "Itinerary ID"
// @Success      200 {object} costs.TripCost
// @Failure      404 {object} types.Response
// @Router       /itineraries/{id}/cost [get]
func (h *HandlerImpl) GetItineraryCost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tc, err := h.service.Cost(r.Context(), id, optionalUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, tc)
}

// ListMyItineraries godoc
// @Summary      List My Itineraries
// @Tags         Itineraries
// @Produce      json
// @Success      200 {array} types.Itinerary
// @Failure      401 {object} types.Response
// @Security     BearerAuth
// @Router       /itineraries [get]
func (h *HandlerImpl) ListMyItineraries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	out, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, out)
}

// ClaimItinerary godoc
// @Summary      Claim Itinerary
// @Description  Transfers an unclaimed itinerary to the authenticated user. Succeeds once.
// @Tags         Itineraries
// @Produce      json
// @Param        id path string true "Itinerary ID"
// @Success      200 {object} types.Itinerary
// @Failure      404 {object} types.Response
// @Failure      409 {object} types.Response "Already claimed"
// @Security     BearerAuth
// @Router       /itineraries/{id}/claim [post]
func (h *HandlerImpl) ClaimItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "ClaimItinerary")
	defer span.End()

	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := h.service.Claim(ctx, id, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Claim failed")
		h.writeError(w, r, err)
		return
	}
	span.SetStatus(codes.Ok, "Itinerary claimed")
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// SaveItinerary godoc
// @Summary      Save Itinerary
// @Tags         Itineraries
// @Produce      json
// @Param        id path string true "Itinerary ID"
// @Success      200 {object} types.Itinerary
// @Security     BearerAuth
// @Router       /itineraries/{id}/save [post]
func (h *HandlerImpl) SaveItinerary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	it, err := h.service.Save(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// UpdateItineraryDays godoc
// @Summary      Update Itinerary Days
// @Description  Replaces the schedule with a user edit; activity order is repaired before saving.
// @Tags         Itineraries
// @Accept       json
// @Produce      json
// @Param        id path string true "Itinerary ID"
// @Param        body body UpdateDaysRequest true "Edited days"
// @Success      200 {object} types.Itinerary
// @Security     BearerAuth
// @Router       /itineraries/{id}/days [put]
func (h *HandlerImpl) UpdateItineraryDays(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateDaysRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	it, err := h.service.UpdateDays(r.Context(), id, optionalUser(r), req.Days)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// SetItineraryVisibility godoc
// @Summary      Set Itinerary Visibility
// @Tags         Itineraries
// @Accept       json
// @Produce      json
// @Param        id path string true "Itinerary ID"
// @Param        body body VisibilityRequest true "Visibility"
// @Success      200 {object} types.Itinerary
// @Security     BearerAuth
// @Router       /itineraries/{id}/visibility [patch]
func (h *HandlerImpl) SetItineraryVisibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req VisibilityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	it, err := h.service.SetVisibility(r.Context(), id, userID, req.IsPublic)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}

// DeleteItinerary godoc
// @Summary      Delete Itinerary
// @Tags         Itineraries
// @Param        id path string true "Itinerary ID"
// @Success      204
// @Security     BearerAuth
// @Router       /itineraries/{id} [delete]
func (h *HandlerImpl) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// Routes mounts the itinerary endpoints. optionalAuth attaches the caller
// when a token is present; requireAuth rejects anonymous requests. generate
// wraps only the generation endpoint.
func (h *HandlerImpl) Routes(optionalAuth, requireAuth func(http.Handler) http.Handler, generate ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.With(generate...).Post("/", h.GenerateItinerary)
		r.Get("/{id}", h.GetItinerary)
		r.Get("/{id}/cost", h.GetItineraryCost)
		r.Put("/{id}/days", h.UpdateItineraryDays)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.ListMyItineraries)
		r.Post("/{id}/claim", h.ClaimItinerary)
		r.Post("/{id}/save", h.SaveItinerary)
		r.Patch("/{id}/visibility", h.SetItineraryVisibility)
		r.Delete("/{id}", h.DeleteItinerary)
	})
	return r
}
