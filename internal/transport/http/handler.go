package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"livequiz-service/internal/app"
	"livequiz-service/internal/auth"
	"livequiz-service/internal/domain"
)

// Handler is the REST surface of the session coordinator. It translates
// domain error kinds to stable responses and never leaks store internals.
type Handler struct {
	service *app.SessionService
	auth    *auth.HostAuth
}

func NewHandler(service *app.SessionService, hostAuth *auth.HostAuth) *Handler {
	return &Handler{service: service, auth: hostAuth}
}

// Register wires all routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /sessions", h.createSession)
	mux.HandleFunc("GET /sessions", h.listSessions)
	mux.HandleFunc("POST /sessions/join", h.joinSession)
	mux.HandleFunc("POST /sessions/{id}/start", h.startSession)
	mux.HandleFunc("POST /sessions/{id}/advance", h.advanceQuestion)
	mux.HandleFunc("POST /sessions/{id}/answers", h.submitAnswer)
	mux.HandleFunc("POST /sessions/{id}/end", h.endSession)
	mux.HandleFunc("GET /sessions/{id}", h.getStatus)
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	Code      string `json:"code"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	hostID, ok := h.requireHost(w, r)
	if !ok {
		return
	}
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.service.CreateSession(r.Context(), hostID, req.QuizID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: session.ID, Code: session.Code})
}

type joinRequest struct {
	Code     string `json:"code"`
	Username string `json:"username"`
}

func (h *Handler) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.service.JoinSession(r.Context(), strings.ToUpper(strings.TrimSpace(req.Code)), req.Username)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	hostID, ok := h.requireHost(w, r)
	if !ok {
		return
	}
	if err := h.service.StartSession(r.Context(), hostID, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": true})
}

type advanceRequest struct {
	QuestionIndex int `json:"questionIndex"`
}

func (h *Handler) advanceQuestion(w http.ResponseWriter, r *http.Request) {
	hostID, ok := h.requireHost(w, r)
	if !ok {
		return
	}
	var req advanceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.AdvanceQuestion(r.Context(), hostID, r.PathValue("id"), req.QuestionIndex); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"questionIndex": req.QuestionIndex})
}

type submitRequest struct {
	Username         string  `json:"username"`
	SelectedOption   int     `json:"selectedOption"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.service.SubmitAnswer(r.Context(), r.PathValue("id"), req.Username, req.SelectedOption, req.TimeTakenSeconds)
	if err != nil {
		// A rejected submission gets one generic message regardless of
		// cause, so the reason cannot leak question state to players.
		if domain.KindOf(err) == domain.KindInternal {
			writeError(w, http.StatusInternalServerError, "internal error")
		} else {
			writeError(w, http.StatusBadRequest, "answer not accepted")
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	hostID, ok := h.requireHost(w, r)
	if !ok {
		return
	}
	ranked, err := h.service.EndSession(r.Context(), hostID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"finalScores": ranked})
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.GetSessionStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	hostID, ok := h.requireHost(w, r)
	if !ok {
		return
	}
	summaries, err := h.service.ListActiveSessions(r.Context(), hostID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": summaries})
}

// requireHost authenticates the Bearer token and returns the host id.
func (h *Handler) requireHost(w http.ResponseWriter, r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		writeError(w, http.StatusUnauthorized, "missing host token")
		return "", false
	}
	hostID, err := h.auth.VerifyToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid host token")
		return "", false
	}
	return hostID, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, rootMessage(err))
	case domain.KindForbidden:
		writeError(w, http.StatusForbidden, rootMessage(err))
	case domain.KindInvalidState, domain.KindConflict:
		writeError(w, http.StatusConflict, rootMessage(err))
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, rootMessage(err))
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// rootMessage strips wrap context so responses carry the stable sentinel
// message only.
func rootMessage(err error) string {
	for {
		unwrapped := errors.Unwrap(err)
		if unwrapped == nil {
			return err.Error()
		}
		err = unwrapped
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
