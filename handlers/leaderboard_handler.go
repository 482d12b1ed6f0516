package handlers

import (
	"net/http"

	"github.com/Dosada05/mob-api/repositories"
	"github.com/Dosada05/mob-api/services"
)

type LeaderboardHandler struct {
	userService services.UserService
}

func NewLeaderboardHandler(us services.UserService) *LeaderboardHandler {
	return &LeaderboardHandler{userService: us}
}

func (h *LeaderboardHandler) All(w http.ResponseWriter, r *http.Request) {
	boards, err := h.userService.Leaderboards(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, boards)
}

// Board serves a single ranking.
func (h *LeaderboardHandler) Board(order repositories.LeaderboardOrder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.userService.Leaderboard(r.Context(), order)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, users)
	}
}
