package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/recompute"
	"github.com/fortuna/laurel/internal/service"
	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

// AwardQueries serves award listings. *service.AwardService implements it.
type AwardQueries interface {
	ListAwards(ctx context.Context, q service.AwardQuery) ([]*repository.AwardListing, error)
	GetPlayerAwards(ctx context.Context, playerID int) (*service.PlayerAwards, error)
	FinalizeSeason(ctx context.Context, season string) (int64, error)
}

// Previewer evaluates an award without storing it. *awards.Engine implements it.
type Previewer interface {
	Preview(ctx context.Context, awardType awards.AwardType, opts awards.Options) ([]awards.ScopeResult, error)
}

// GameQueries reads games. *service.GameService implements it.
type GameQueries interface {
	GetGame(ctx context.Context, gameID int) (*store.Game, error)
	GetSeasonGames(ctx context.Context, season string) ([]*store.Game, error)
}

// StatsCommands reads and imports box scores. *service.StatsService implements it.
type StatsCommands interface {
	GetGameBoxScore(ctx context.Context, gameID int) (*service.BoxScore, error)
	GetPlayerGameStats(ctx context.Context, gameID, playerID int) (*service.PlayerStatLine, error)
	ImportBoxScore(ctx context.Context, in *service.BoxScoreImport) (int, error)
}

// PlayerQueries reads players. *service.PlayerService implements it.
type PlayerQueries interface {
	GetPlayer(ctx context.Context, playerID int) (*store.Player, error)
	SearchPlayers(ctx context.Context, name string) ([]*store.Player, error)
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	awards  AwardQueries
	preview Previewer
	games   GameQueries
	stats   StatsCommands
	players PlayerQueries
	checks  map[string]HealthChecker
}

// NewHandler creates a new handler
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		awards:  deps.Awards,
		preview: deps.Preview,
		games:   deps.Games,
		stats:   deps.Stats,
		players: deps.Players,
		checks:  deps.HealthChecks,
	}
}

// HealthCheck reports the service and its backing stores
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": "laurel",
		"checks":  checks,
	})
}

// GetAwardTypes lists every award with its kind and description
func (h *Handler) GetAwardTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, awards.Catalogue())
}

// GetAwards lists awards filtered by season, type and week
func (h *Handler) GetAwards(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q, err := service.ParseAwardQuery(params.Get("season"), params.Get("type"), params.Get("week"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid award filter", err)
		return
	}

	listed, err := h.awards.ListAwards(r.Context(), q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch awards", err)
		return
	}

	respondJSON(w, http.StatusOK, listed)
}

// PreviewAwards evaluates one award type without storing the result
func (h *Handler) PreviewAwards(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	if params.Get("type") == "" {
		respondError(w, http.StatusBadRequest, "Missing award type", nil)
		return
	}
	q, err := service.ParseAwardQuery(params.Get("season"), params.Get("type"), "")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid award filter", err)
		return
	}

	scopes, err := h.preview.Preview(r.Context(), q.Type, awards.Options{Season: q.Season})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to evaluate awards", err)
		return
	}
	if scopes == nil {
		scopes = []awards.ScopeResult{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"award_type": q.Type,
		"season":     q.Season,
		"scopes":     scopes,
	})
}

// FinalizeSeason marks a season's season awards as final
func (h *Handler) FinalizeSeason(w http.ResponseWriter, r *http.Request) {
	season := mux.Vars(r)["season"]

	n, err := h.awards.FinalizeSeason(r.Context(), season)
	if err != nil {
		respondError(w, statusFor(err), "Failed to finalize season", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"season":    season,
		"finalized": n,
	})
}

// GetSeasonGames returns every game of a season
func (h *Handler) GetSeasonGames(w http.ResponseWriter, r *http.Request) {
	season := r.URL.Query().Get("season")
	if season == "" {
		respondError(w, http.StatusBadRequest, "Missing season", nil)
		return
	}
	if _, err := strconv.Atoi(season); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season", err)
		return
	}

	games, err := h.games.GetSeasonGames(r.Context(), season)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch games", err)
		return
	}

	respondJSON(w, http.StatusOK, games)
}

// GetGame returns a single game
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID", "Invalid game ID")
	if !ok {
		return
	}

	game, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch game", err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// GetGameBoxScore returns a game with every stat line
func (h *Handler) GetGameBoxScore(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID", "Invalid game ID")
	if !ok {
		return
	}

	box, err := h.stats.GetGameBoxScore(r.Context(), gameID)
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch box score", err)
		return
	}

	respondJSON(w, http.StatusOK, box)
}

// GetPlayerGameStats returns one player's line in a game with its quarters
func (h *Handler) GetPlayerGameStats(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID", "Invalid game ID")
	if !ok {
		return
	}
	playerID, ok := pathID(w, r, "playerID", "Invalid player ID")
	if !ok {
		return
	}

	line, err := h.stats.GetPlayerGameStats(r.Context(), gameID, playerID)
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch player stats", err)
		return
	}

	respondJSON(w, http.StatusOK, line)
}

// ImportBoxScore stores a played game
func (h *Handler) ImportBoxScore(w http.ResponseWriter, r *http.Request) {
	var in service.BoxScoreImport
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	gameID, err := h.stats.ImportBoxScore(r.Context(), &in)
	if err != nil {
		respondError(w, statusFor(err), "Failed to import box score", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"game_id": gameID,
		"lines":   len(in.Lines),
	})
}

// GetPlayer returns a single player
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, ok := pathID(w, r, "playerID", "Invalid player ID")
	if !ok {
		return
	}

	player, err := h.players.GetPlayer(r.Context(), playerID)
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch player", err)
		return
	}

	respondJSON(w, http.StatusOK, player)
}

// SearchPlayers finds players by name
func (h *Handler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		respondError(w, http.StatusBadRequest, "Missing name query parameter", nil)
		return
	}

	players, err := h.players.SearchPlayers(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to search players", err)
		return
	}

	respondJSON(w, http.StatusOK, players)
}

// GetPlayerAwards returns a player with every award they hold
func (h *Handler) GetPlayerAwards(w http.ResponseWriter, r *http.Request) {
	playerID, ok := pathID(w, r, "playerID", "Invalid player ID")
	if !ok {
		return
	}

	result, err := h.awards.GetPlayerAwards(r.Context(), playerID)
	if err != nil {
		respondError(w, statusFor(err), "Failed to fetch player awards", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// pathID parses a positive integer route variable, writing a 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name, message string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err == nil && id <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, message, err)
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, recompute.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidQuery),
		errors.Is(err, awards.ErrUnknownAwardType),
		errors.Is(err, awards.ErrWrongKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
