package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cutroom/cutroom-agent/internal/authority"
	"github.com/cutroom/cutroom-agent/internal/editor"
	"github.com/cutroom/cutroom-agent/internal/export"
	"github.com/cutroom/cutroom-agent/internal/persistence"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/timeline", snapshotHandler(cfg))
		r.Post("/timeline/clips", addClipHandler(cfg))
		r.Post("/timeline/clips/{id}/select", selectClipHandler(cfg))
		r.Post("/timeline/deselect", deselectHandler(cfg))
		r.Post("/timeline/split", splitHandler(cfg))
		r.Delete("/timeline/selected", deleteSelectedHandler(cfg))

		r.Post("/playback/play", playHandler(cfg))
		r.Post("/playback/pause", pauseHandler(cfg))
		r.Post("/playback/seek", seekHandler(cfg))
		r.Post("/playback/scrub/start", scrubStartHandler(cfg))
		r.Post("/playback/scrub/move", scrubMoveHandler(cfg))
		r.Post("/playback/scrub/end", scrubEndHandler(cfg))
		r.Post("/recording/start", recordStartHandler(cfg))
		r.Post("/recording/stop", recordStopHandler(cfg))

		r.Post("/export", exportHandler(cfg))

		r.Get("/saves", listSavesHandler(cfg))
		r.Post("/saves", saveNowHandler(cfg))
		r.Post("/saves/{id}/restore", restoreSaveHandler(cfg))
		r.Get("/failures", listFailuresHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Editor.Snapshot()

		resp := StatusResponse{
			State:          string(cfg.Editor.State()),
			Project:        cfg.Project,
			ClipCount:      len(snap.Clips),
			TotalDuration:  snap.TotalDuration,
			CurrentTime:    snap.CurrentTime,
			SelectedClipID: snap.SelectedClipID,
			Recording:      snap.Recording == timeline.RecordingActive,
			CanEdit:        cfg.Editor.CanEdit(),
			LastFailure:    snap.LastFailure,
		}
		if cfg.Autosaver != nil {
			resp.AutosavePaused = cfg.Autosaver.IsPaused()
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func snapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, SnapshotResponse{
			State:    string(cfg.Editor.State()),
			Snapshot: cfg.Editor.Snapshot(),
		})
	}
}

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.SourceURL == "" {
			WriteError(w, http.StatusBadRequest, "source_url is required", "BAD_REQUEST")
			return
		}

		clip, err := cfg.Editor.AddClip(timeline.Clip{
			TrackID:   req.TrackID,
			SourceURL: req.SourceURL,
			StartTime: req.StartTime,
			Duration:  req.Duration,
			InPoint:   req.InPoint,
			OutPoint:  req.OutPoint,
		})
		if err != nil {
			writeEditorError(w, err)
			return
		}

		WriteJSON(w, http.StatusCreated, AddClipResponse{Clip: clip})
	}
}

func selectClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "clip id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.SelectClip(id); err != nil {
			writeEditorError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func deselectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.DeselectClip(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SplitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.SplitSelectedAt(req.Time); err != nil {
			writeEditorError(w, err)
			return
		}

		// The split completes asynchronously; the caller polls the
		// snapshot for the folded result.
		w.WriteHeader(http.StatusAccepted)
	}
}

func deleteSelectedHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.DeleteSelected(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Play(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Pause(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.Seek(req.Time); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func scrubStartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.BeginScrub(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func scrubMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := cfg.Editor.ScrubTo(req.Time); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func scrubEndHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.EndScrub(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func recordStartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.StartRecording(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func recordStopHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.StopRecording(); err != nil {
			writeEditorError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if strings.ToLower(req.Format) != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", "BAD_REQUEST")
			return
		}

		snap := cfg.Editor.Snapshot()
		if len(snap.Clips) == 0 {
			WriteError(w, http.StatusBadRequest, "timeline is empty", "BAD_REQUEST")
			return
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = 30.0
		}

		projectName := req.ProjectName
		if projectName == "" {
			projectName = cfg.Project
		}

		resolved := export.Resolve(snap)
		path, err := export.WriteEDL(req.OutputDir, projectName, resolved, frameRate)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:     "ok",
			Format:     "edl",
			OutputPath: path,
			ClipCount:  len(resolved),
		})
	}
}

func listSavesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saves, err := cfg.Repository.ListSnapshots(r.Context(), cfg.Project, 20)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list saves", "INTERNAL_ERROR")
			return
		}

		resp := SavesResponse{Saves: make([]SaveSummary, len(saves))}
		for i, s := range saves {
			resp.Saves[i] = SaveToSummary(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func saveNowHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Autosaver == nil {
			WriteError(w, http.StatusServiceUnavailable, "autosave not configured", "UNAVAILABLE")
			return
		}

		saved, err := cfg.Autosaver.SaveNow(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusCreated, SaveResponse{
			SaveID:    saved.ID,
			CreatedAt: saved.CreatedAt.Format(time.RFC3339),
		})
	}
}

func restoreSaveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "save id required", "BAD_REQUEST")
			return
		}

		saved, err := cfg.Repository.GetSnapshot(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if saved == nil {
			WriteError(w, http.StatusNotFound, "save not found", "NOT_FOUND")
			return
		}

		if err := cfg.Editor.Restore(saved.Snapshot); err != nil {
			writeEditorError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listFailuresHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures, err := cfg.Repository.ListFailures(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list failures", "INTERNAL_ERROR")
			return
		}
		if failures == nil {
			failures = []*persistence.FailureRecord{}
		}
		WriteJSON(w, http.StatusOK, FailuresResponse{Failures: failures})
	}
}

// writeEditorError maps facade and guard errors onto HTTP statuses. Guard
// rejections from the state machine arrive as *authority.GuardError and are
// conflicts, not malformed requests.
func writeEditorError(w http.ResponseWriter, err error) {
	var guardErr *authority.GuardError
	switch {
	case errors.Is(err, editor.ErrNoSelection):
		WriteError(w, http.StatusConflict, err.Error(), "NO_SELECTION")
	case errors.Is(err, editor.ErrNotEditable):
		WriteError(w, http.StatusConflict, err.Error(), "NOT_EDITABLE")
	case errors.Is(err, editor.ErrClipNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, editor.ErrInvalidSplitTime):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_SPLIT_TIME")
	case errors.As(err, &guardErr):
		WriteError(w, http.StatusConflict, guardErr.Error(), "GUARD_REJECTED")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
