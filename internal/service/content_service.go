package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mathmentor-api/internal/client"
	"mathmentor-api/internal/config"
	"mathmentor-api/internal/models"
	"mathmentor-api/internal/repository/scylla"
	"mathmentor-api/internal/util"
)

// ContentService manages the study content collections: flashcards,
// quizzes, study notes and tutor materials. Notes and materials are
// mirrored into Elasticsearch on every write so they are searchable.
type ContentService struct {
	repo   scylla.ContentRepository
	es     *client.ESClient
	config *config.Config
	logger *zap.Logger
}

func NewContentService(repo scylla.ContentRepository, es *client.ESClient, cfg *config.Config, logger *zap.Logger) *ContentService {
	return &ContentService{
		repo:   repo,
		es:     es,
		config: cfg,
		logger: logger,
	}
}

// --- flashcards ---

type CreateFlashcardRequest struct {
	Topic      string `json:"topic"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	Difficulty int    `json:"difficulty"`
}

func (s *ContentService) CreateFlashcard(ctx context.Context, ownerID string, req *CreateFlashcardRequest) (*models.Flashcard, error) {
	if req.Front == "" || req.Back == "" {
		return nil, fmt.Errorf("%w: front and back are required", ErrInvalidInput)
	}

	card := &models.Flashcard{
		OwnerID:    ownerID,
		CardID:     uuid.New().String(),
		Topic:      util.SanitizeInput(req.Topic),
		Front:      util.SanitizeInput(req.Front),
		Back:       util.SanitizeInput(req.Back),
		Difficulty: req.Difficulty,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.CreateFlashcard(ctx, card); err != nil {
		return nil, fmt.Errorf("failed to create flashcard: %w", err)
	}
	return card, nil
}

func (s *ContentService) GetFlashcard(ctx context.Context, ownerID, cardID string) (*models.Flashcard, error) {
	card, err := s.repo.GetFlashcard(ctx, ownerID, cardID)
	if err != nil {
		return nil, mapRepoErr(err, "flashcard")
	}
	return card, nil
}

func (s *ContentService) ListFlashcards(ctx context.Context, ownerID string) ([]*models.Flashcard, error) {
	cards, err := s.repo.ListFlashcards(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	return cards, nil
}

func (s *ContentService) DeleteFlashcard(ctx context.Context, ownerID, cardID string) error {
	if err := s.repo.DeleteFlashcard(ctx, ownerID, cardID); err != nil {
		return fmt.Errorf("failed to delete flashcard: %w", err)
	}
	return nil
}

// --- quizzes ---

type CreateQuizRequest struct {
	Title     string                `json:"title"`
	Topic     string                `json:"topic"`
	Questions []models.QuizQuestion `json:"questions"`
}

func (s *ContentService) CreateQuiz(ctx context.Context, ownerID string, req *CreateQuizRequest) (*models.Quiz, error) {
	if req.Title == "" || len(req.Questions) == 0 {
		return nil, fmt.Errorf("%w: title and at least one question are required", ErrInvalidInput)
	}
	for i, q := range req.Questions {
		if q.Prompt == "" || len(q.Choices) < 2 {
			return nil, fmt.Errorf("%w: question %d needs a prompt and at least two choices", ErrInvalidInput, i)
		}
		if q.Answer < 0 || q.Answer >= len(q.Choices) {
			return nil, fmt.Errorf("%w: question %d answer index out of range", ErrInvalidInput, i)
		}
	}

	quiz := &models.Quiz{
		OwnerID:   ownerID,
		QuizID:    uuid.New().String(),
		Title:     util.SanitizeInput(req.Title),
		Topic:     util.SanitizeInput(req.Topic),
		Questions: req.Questions,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateQuiz(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}
	return quiz, nil
}

func (s *ContentService) GetQuiz(ctx context.Context, ownerID, quizID string) (*models.Quiz, error) {
	quiz, err := s.repo.GetQuiz(ctx, ownerID, quizID)
	if err != nil {
		return nil, mapRepoErr(err, "quiz")
	}
	return quiz, nil
}

func (s *ContentService) ListQuizzes(ctx context.Context, ownerID string) ([]*models.Quiz, error) {
	quizzes, err := s.repo.ListQuizzes(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *ContentService) DeleteQuiz(ctx context.Context, ownerID, quizID string) error {
	if err := s.repo.DeleteQuiz(ctx, ownerID, quizID); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	return nil
}

// --- study notes ---

type CreateNoteRequest struct {
	Title string `json:"title"`
	Topic string `json:"topic"`
	Body  string `json:"body"`
}

func (s *ContentService) CreateNote(ctx context.Context, ownerID string, req *CreateNoteRequest) (*models.StudyNote, error) {
	if req.Title == "" || req.Body == "" {
		return nil, fmt.Errorf("%w: title and body are required", ErrInvalidInput)
	}

	note := &models.StudyNote{
		OwnerID:   ownerID,
		NoteID:    uuid.New().String(),
		Title:     util.SanitizeInput(req.Title),
		Topic:     util.SanitizeInput(req.Topic),
		Body:      util.SanitizeInput(req.Body),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.indexDocument(ctx, s.config.Elasticsearch.NoteIndex, note.NoteID, note)
	return note, nil
}

func (s *ContentService) GetNote(ctx context.Context, ownerID, noteID string) (*models.StudyNote, error) {
	note, err := s.repo.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, mapRepoErr(err, "note")
	}
	return note, nil
}

func (s *ContentService) ListNotes(ctx context.Context, ownerID string) ([]*models.StudyNote, error) {
	notes, err := s.repo.ListNotes(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func (s *ContentService) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	if err := s.repo.DeleteNote(ctx, ownerID, noteID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	s.deleteDocument(ctx, s.config.Elasticsearch.NoteIndex, noteID)
	return nil
}

// --- tutor materials ---

type CreateMaterialRequest struct {
	Title       string `json:"title"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	FileURL     string `json:"file_url"`
}

func (s *ContentService) CreateMaterial(ctx context.Context, tutorID string, req *CreateMaterialRequest) (*models.TutorMaterial, error) {
	if req.Title == "" || req.Subject == "" {
		return nil, fmt.Errorf("%w: title and subject are required", ErrInvalidInput)
	}

	material := &models.TutorMaterial{
		TutorID:     tutorID,
		MaterialID:  uuid.New().String(),
		Title:       util.SanitizeInput(req.Title),
		Subject:     util.SanitizeInput(req.Subject),
		Description: util.SanitizeInput(req.Description),
		FileURL:     req.FileURL,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateMaterial(ctx, material); err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	s.indexDocument(ctx, s.config.Elasticsearch.MaterialIndex, material.MaterialID, material)
	return material, nil
}

func (s *ContentService) GetMaterial(ctx context.Context, tutorID, materialID string) (*models.TutorMaterial, error) {
	material, err := s.repo.GetMaterial(ctx, tutorID, materialID)
	if err != nil {
		return nil, mapRepoErr(err, "material")
	}
	return material, nil
}

func (s *ContentService) ListMaterials(ctx context.Context, tutorID string) ([]*models.TutorMaterial, error) {
	materials, err := s.repo.ListMaterials(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	return materials, nil
}

func (s *ContentService) DeleteMaterial(ctx context.Context, tutorID, materialID string) error {
	if err := s.repo.DeleteMaterial(ctx, tutorID, materialID); err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	s.deleteDocument(ctx, s.config.Elasticsearch.MaterialIndex, materialID)
	return nil
}

// --- search ---

// Search queries study notes and tutor materials together.
func (s *ContentService) Search(ctx context.Context, text string, limit int) ([]client.SearchHit, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if s.es == nil {
		return nil, errors.New("search is not available")
	}

	indices := []string{s.config.Elasticsearch.NoteIndex, s.config.Elasticsearch.MaterialIndex}
	hits, err := s.es.Search(ctx, indices, text, limit)
	if err != nil {
		return nil, fmt.Errorf("content search: %w", err)
	}
	return hits, nil
}

// indexDocument mirrors a row into Elasticsearch. Indexing lag is
// acceptable; the Scylla row is the source of truth.
func (s *ContentService) indexDocument(ctx context.Context, index, id string, doc interface{}) {
	if s.es == nil {
		return
	}
	if err := s.es.IndexDocument(ctx, index, id, doc); err != nil {
		s.logger.Warn("Failed to index document",
			util.String("index", index),
			util.String("id", id),
			util.ErrorField(err))
	}
}

func (s *ContentService) deleteDocument(ctx context.Context, index, id string) {
	if s.es == nil {
		return
	}
	if err := s.es.DeleteDocument(ctx, index, id); err != nil {
		s.logger.Warn("Failed to remove document from index",
			util.String("index", index),
			util.String("id", id),
			util.ErrorField(err))
	}
}

func mapRepoErr(err error, what string) error {
	if errors.Is(err, scylla.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
