package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"nexus.dev/research-console/internal/core"
	"nexus.dev/research-console/internal/store"
)

const maxUploadMemory = 32 << 20

func (h *APIHandler) ListArtifactsHandler(w http.ResponseWriter, r *http.Request) {
	artifacts, err := h.artifacts.GetAllArtifacts()
	if err != nil {
		writeError(w, err, "Failed to list artifacts")
		return
	}
	writeJSON(w, http.StatusOK, artifacts)
}

func (h *APIHandler) GetArtifactHandler(w http.ResponseWriter, r *http.Request) {
	a, err := h.artifacts.GetArtifact(chi.URLParam(r, "artifactID"))
	if err != nil {
		writeError(w, err, "Failed to get artifact")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UploadArtifactsHandler stores every file sent under the multipart "file" field.
func (h *APIHandler) UploadArtifactsHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Invalid multipart body: "+err.Error(), http.StatusBadRequest)
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		http.Error(w, "At least one file is required", http.StatusBadRequest)
		return
	}

	stored := make([]store.Artifact, 0, len(files))
	for _, fh := range files {
		a, err := readUpload(fh)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to read %s: %v", fh.Filename, err), http.StatusBadRequest)
			return
		}
		if err := h.artifacts.PutArtifact(&a); err != nil {
			writeError(w, err, "Failed to store artifact")
			return
		}
		sess.AddLog(fmt.Sprintf("Artifact mounted: %s", a.Name), core.LogInfo)
		stored = append(stored, a)
	}
	sess.AddLog(fmt.Sprintf("Indexed %d artifact(s) into context memory", len(stored)), core.LogKernel)
	writeJSON(w, http.StatusCreated, stored)
}

func readUpload(fh *multipart.FileHeader) (store.Artifact, error) {
	f, err := fh.Open()
	if err != nil {
		return store.Artifact{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return store.Artifact{}, err
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}
	return store.NewArtifactFromFile(fh.Filename, mimeType, data), nil
}

// PutArtifactHandler stores a JSON artifact under the id in the path, replacing any existing one.
func (h *APIHandler) PutArtifactHandler(w http.ResponseWriter, r *http.Request) {
	var a store.Artifact
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	a.ID = chi.URLParam(r, "artifactID")
	if a.Type == store.ArtifactImage || a.Type == store.ArtifactAudio {
		a.Content = store.StripDataURL(a.Content)
	}

	if err := h.artifacts.PutArtifact(&a); err != nil {
		writeError(w, err, "Failed to store artifact")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *APIHandler) DeleteArtifactHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "artifactID")
	if err := h.artifacts.DeleteArtifact(id); err != nil {
		writeError(w, err, "Failed to delete artifact")
		return
	}
	sessionFrom(r.Context()).AddLog(fmt.Sprintf("Artifact unmounted: %s", id), core.LogWarn)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ClearArtifactsHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.artifacts.ClearArtifacts(); err != nil {
		writeError(w, err, "Failed to clear artifacts")
		return
	}
	sessionFrom(r.Context()).AddLog("Memory vault purged", core.LogWarn)
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ImportDemoHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	imported, err := h.artifacts.ImportDemoArtifacts()
	if err != nil {
		writeError(w, err, "Failed to import demo dataset")
		return
	}
	for _, a := range imported {
		sess.AddLog(fmt.Sprintf("Artifact mounted: %s", a.Name), core.LogInfo)
	}
	sess.AddLog("Demo dataset ready. Try: \"Summarize what went wrong in this incident.\"", core.LogKernel)
	writeJSON(w, http.StatusCreated, imported)
}
