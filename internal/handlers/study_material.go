package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"studyroom-backend/internal/logger"
	"studyroom-backend/internal/middleware"
	"studyroom-backend/internal/models"
)

const maxJSONBodyBytes = 2 << 20

type studyMaterialService interface {
	Create(ctx context.Context, userID uuid.UUID, req models.CreateStudyMaterialRequest) (*models.StudyMaterial, error)
	CreateFromFile(ctx context.Context, userID uuid.UUID, title string, tags models.TagList, filename string, data []byte) (*models.StudyMaterial, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.StudyMaterialListing, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.StudyMaterial, error)
	Update(ctx context.Context, id, userID uuid.UUID, req models.UpdateStudyMaterialRequest) (*models.StudyMaterial, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	ScoreQuiz(ctx context.Context, id, userID uuid.UUID, req models.ScoreQuizRequest) (*models.QuizScore, error)
}

type StudyMaterialHandler struct {
	service        studyMaterialService
	maxUploadBytes int64
	log            *logger.Logger
}

func NewStudyMaterialHandler(service studyMaterialService, maxUploadMB int, log *logger.Logger) *StudyMaterialHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 20
	}
	return &StudyMaterialHandler{
		service:        service,
		maxUploadBytes: int64(maxUploadMB) << 20,
		log:            log,
	}
}

func (h *StudyMaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStudyMaterialRequest
	if !decodeJSON(w, r, maxJSONBodyBytes, &req) {
		return
	}

	userID := middleware.GetUserID(r.Context())
	m, err := h.service.Create(r.Context(), userID, req)
	if err != nil {
		h.logFailure(r, "create study material", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// Upload accepts multipart fields title, tags and file. tags may be repeated
// or given once as a comma-separated string.
func (h *StudyMaterialHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "File is too large", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"file": "file is required"}, r))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "File is too large", r))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not read uploaded file", r))
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("PAYLOAD_TOO_LARGE", "File is too large", r))
		return
	}

	var tags []string
	for _, v := range r.MultipartForm.Value["tags"] {
		tags = append(tags, strings.Split(v, ",")...)
	}

	userID := middleware.GetUserID(r.Context())
	m, err := h.service.CreateFromFile(r.Context(), userID, r.FormValue("title"), models.NormalizeTags(tags), header.Filename, data)
	if err != nil {
		h.logFailure(r, "create study material from upload", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

func (h *StudyMaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	materials, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.logFailure(r, "list study materials", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"study_materials": materials,
		"count":           len(materials),
	})
}

func (h *StudyMaterialHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	m, err := h.service.Get(r.Context(), id, middleware.GetUserID(r.Context()))
	if err != nil {
		h.logFailure(r, "get study material", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *StudyMaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req models.UpdateStudyMaterialRequest
	if !decodeJSON(w, r, maxJSONBodyBytes, &req) {
		return
	}

	m, err := h.service.Update(r.Context(), id, middleware.GetUserID(r.Context()), req)
	if err != nil {
		h.logFailure(r, "update study material", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

func (h *StudyMaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, middleware.GetUserID(r.Context())); err != nil {
		h.logFailure(r, "delete study material", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Study material deleted successfully"})
}

func (h *StudyMaterialHandler) ScoreQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req models.ScoreQuizRequest
	if !decodeJSON(w, r, maxJSONBodyBytes, &req) {
		return
	}

	score, err := h.service.ScoreQuiz(r.Context(), id, middleware.GetUserID(r.Context()), req)
	if err != nil {
		h.logFailure(r, "score quiz", err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, score)
}

func (h *StudyMaterialHandler) logFailure(r *http.Request, op string, err error) {
	h.log.Warn(op+" failed",
		"request_id", middleware.GetRequestID(r),
		"user_id", middleware.GetUserID(r.Context()),
		"error", err,
	)
}
