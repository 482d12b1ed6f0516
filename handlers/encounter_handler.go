package handlers

import (
	"net/http"

	"github.com/Dosada05/mob-api/services"
)

type EncounterHandler struct {
	encounterService services.EncounterService
}

func NewEncounterHandler(es services.EncounterService) *EncounterHandler {
	return &EncounterHandler{encounterService: es}
}

func (h *EncounterHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input services.CreateEncounterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	encounter, err := h.encounterService.CreateEncounter(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, encounter)
}

func (h *EncounterHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	encounter, err := h.encounterService.GetEncounterByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, encounter)
}

func (h *EncounterHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateEncounterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	encounter, err := h.encounterService.UpdateEncounter(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, encounter)
}

func (h *EncounterHandler) ListByTournamentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	encounters, err := h.encounterService.ListByTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, encounters)
}

func (h *EncounterHandler) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ids, err := h.encounterService.ListParticipantIDs(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if len(ids) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond(w, r, http.StatusOK, userIDRows(ids))
}

func (h *EncounterHandler) AddProfileHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	requesterID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var input services.EnrollInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	if err := input.Validate(); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	userID := input.UserID
	if userID == 0 {
		userID = requesterID
	}

	pair, err := h.encounterService.AddParticipant(r.Context(), id, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, pair)
}
