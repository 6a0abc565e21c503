package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"nexus.dev/research-console/internal/auth"
	"nexus.dev/research-console/internal/core"
	"nexus.dev/research-console/internal/logging"
	"nexus.dev/research-console/internal/store"
)

// ArtifactStore is the artifact vault as seen by the HTTP layer.
type ArtifactStore interface {
	PutArtifact(a *store.Artifact) error
	GetArtifact(id string) (*store.Artifact, error)
	GetAllArtifacts() ([]store.Artifact, error)
	DeleteArtifact(id string) error
	ClearArtifacts() error
	ImportDemoArtifacts() ([]store.Artifact, error)
}

type APIHandler struct {
	chatService *core.ChatService
	artifacts   ArtifactStore
	issuer      *auth.Issuer
	policy      *core.PolicyEngine
}

func NewAPIHandler(cs *core.ChatService, artifacts ArtifactStore, issuer *auth.Issuer, policy *core.PolicyEngine) *APIHandler {
	return &APIHandler{
		chatService: cs,
		artifacts:   artifacts,
		issuer:      issuer,
		policy:      policy,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warnf("Failed to encode response: %v", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyDirective),
		errors.Is(err, core.ErrInvalidMode),
		errors.Is(err, store.ErrInvalidArtifact):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, store.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTurnInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.Error(msg, err)
		http.Error(w, msg, status)
		return
	}
	http.Error(w, err.Error(), status)
}

type CreateSessionRequest struct {
	Mode string `json:"mode,omitempty"`
}

type CreateSessionResponse struct {
	SessionID string             `json:"session_id"`
	Token     string             `json:"token"`
	Mode      core.ReasoningMode `json:"mode"`
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	mode := core.ModeFlash
	if req.Mode != "" {
		parsed, err := core.ParseReasoningMode(req.Mode)
		if err != nil {
			writeError(w, err, "Invalid mode")
			return
		}
		mode = parsed
	}

	sess := h.chatService.Sessions().Create(mode)
	token, err := h.issuer.GenerateSessionToken(sess.ID)
	if err != nil {
		h.chatService.Sessions().Delete(sess.ID)
		logging.Error("Failed to sign session token", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{SessionID: sess.ID, Token: token, Mode: mode})
}

func (h *APIHandler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Snapshot())
}

type SetModeRequest struct {
	Mode string `json:"mode"`
}

func (h *APIHandler) SetModeHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req SetModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	mode, err := core.ParseReasoningMode(req.Mode)
	if err != nil {
		writeError(w, err, "Invalid mode")
		return
	}

	sess.SetMode(mode)
	sess.AddLog(fmt.Sprintf("Reasoning mode set to %s", strings.ToUpper(string(mode))), core.LogInfo)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type PostMessageRequest struct {
	Text string `json:"text"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	// A turn finishes and resets its phase state even if the client goes away.
	result, err := h.chatService.PostMessage(context.WithoutCancel(r.Context()), sess.ID, req.Text)
	if err != nil {
		writeError(w, err, "Failed to post message")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) LogsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionFrom(r.Context()).Logs())
}

type AuthorizeRequest struct {
	Action   string            `json:"action"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (h *APIHandler) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Action == "" {
		http.Error(w, "Action is required", http.StatusBadRequest)
		return
	}

	result, err := h.policy.Authorize(r.Context(), req.Action, req.Metadata)
	if err != nil {
		writeError(w, err, "Policy evaluation failed")
		return
	}

	verdict, level := "ALLOW", core.LogSec
	if !result.Authorized {
		verdict, level = "DENY", core.LogError
	}
	sess.AddLog(fmt.Sprintf("[OPA] %s %s (%s)", verdict, req.Action, result.Policy), level)
	writeJSON(w, http.StatusOK, result)
}
