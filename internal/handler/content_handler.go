package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mathmentor-api/internal/service"
)

// ContentHandler handles HTTP requests for the study content
// collections. Every route is scoped by the owning profile id.
type ContentHandler struct {
	contentService *service.ContentService
	logger         *zap.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentService *service.ContentService, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// RegisterRoutes registers all content routes
func (h *ContentHandler) RegisterRoutes(router chi.Router) {
	router.Route("/profiles/{profileID}/flashcards", func(r chi.Router) {
		r.Post("/", h.CreateFlashcard)
		r.Get("/", h.ListFlashcards)
		r.Get("/{cardID}", h.GetFlashcard)
		r.Delete("/{cardID}", h.DeleteFlashcard)
	})

	router.Route("/profiles/{profileID}/quizzes", func(r chi.Router) {
		r.Post("/", h.CreateQuiz)
		r.Get("/", h.ListQuizzes)
		r.Get("/{quizID}", h.GetQuiz)
		r.Delete("/{quizID}", h.DeleteQuiz)
	})

	router.Route("/profiles/{profileID}/notes", func(r chi.Router) {
		r.Post("/", h.CreateNote)
		r.Get("/", h.ListNotes)
		r.Get("/{noteID}", h.GetNote)
		r.Delete("/{noteID}", h.DeleteNote)
	})

	router.Route("/profiles/{profileID}/materials", func(r chi.Router) {
		r.Post("/", h.CreateMaterial)
		r.Get("/", h.ListMaterials)
		r.Get("/{materialID}", h.GetMaterial)
		r.Delete("/{materialID}", h.DeleteMaterial)
	})

	router.Get("/search", h.Search)
}

// --- flashcards ---

func (h *ContentHandler) CreateFlashcard(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "profileID")

	var req service.CreateFlashcardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	card, err := h.contentService.CreateFlashcard(r.Context(), ownerID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create flashcard")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(card, "Flashcard created successfully"))
}

func (h *ContentHandler) GetFlashcard(w http.ResponseWriter, r *http.Request) {
	card, err := h.contentService.GetFlashcard(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "cardID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get flashcard")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(card, "Flashcard retrieved successfully"))
}

func (h *ContentHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.contentService.ListFlashcards(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list flashcards")
		return
	}
	resp := successResponse(cards, "Flashcards retrieved successfully")
	resp.Meta = &Meta{Total: len(cards)}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) DeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	if err := h.contentService.DeleteFlashcard(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "cardID")); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to delete flashcard")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Flashcard deleted successfully"))
}

// --- quizzes ---

func (h *ContentHandler) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "profileID")

	var req service.CreateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	quiz, err := h.contentService.CreateQuiz(r.Context(), ownerID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create quiz")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(quiz, "Quiz created successfully"))
}

func (h *ContentHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.contentService.GetQuiz(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "quizID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get quiz")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(quiz, "Quiz retrieved successfully"))
}

func (h *ContentHandler) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.contentService.ListQuizzes(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list quizzes")
		return
	}
	resp := successResponse(quizzes, "Quizzes retrieved successfully")
	resp.Meta = &Meta{Total: len(quizzes)}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) DeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.contentService.DeleteQuiz(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "quizID")); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to delete quiz")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Quiz deleted successfully"))
}

// --- study notes ---

func (h *ContentHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "profileID")

	var req service.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	note, err := h.contentService.CreateNote(r.Context(), ownerID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create note")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(note, "Note created successfully"))
}

func (h *ContentHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.contentService.GetNote(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "noteID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get note")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(note, "Note retrieved successfully"))
}

func (h *ContentHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := h.contentService.ListNotes(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list notes")
		return
	}
	resp := successResponse(notes, "Notes retrieved successfully")
	resp.Meta = &Meta{Total: len(notes)}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.contentService.DeleteNote(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "noteID")); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to delete note")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Note deleted successfully"))
}

// --- tutor materials ---

func (h *ContentHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	tutorID := chi.URLParam(r, "profileID")

	var req service.CreateMaterialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	material, err := h.contentService.CreateMaterial(r.Context(), tutorID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create material")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(material, "Material created successfully"))
}

func (h *ContentHandler) GetMaterial(w http.ResponseWriter, r *http.Request) {
	material, err := h.contentService.GetMaterial(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "materialID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get material")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(material, "Material retrieved successfully"))
}

func (h *ContentHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.contentService.ListMaterials(r.Context(), chi.URLParam(r, "profileID"))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list materials")
		return
	}
	resp := successResponse(materials, "Materials retrieved successfully")
	resp.Meta = &Meta{Total: len(materials)}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ContentHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := h.contentService.DeleteMaterial(r.Context(), chi.URLParam(r, "profileID"), chi.URLParam(r, "materialID")); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to delete material")
		return
	}
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Material deleted successfully"))
}

// --- search ---

// Search queries notes and materials via Elasticsearch.
func (h *ContentHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	hits, err := h.contentService.Search(r.Context(), query, limit)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Search failed")
		return
	}

	resp := successResponse(hits, "Search completed")
	resp.Meta = &Meta{Total: len(hits)}
	respondWithJSON(w, http.StatusOK, resp)
}
