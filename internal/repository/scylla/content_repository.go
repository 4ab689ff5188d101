package scylla

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mathmentor-api/internal/models"
	"mathmentor-api/internal/util"
)

// StudyContentRepository covers the four study-content collections.
// They share the same owner-partitioned shape, so one repository keeps
// the wiring in a single place.
type StudyContentRepository struct {
	client *ScyllaClient
}

func NewStudyContentRepository(client *ScyllaClient, logger *zap.Logger) *StudyContentRepository {
	return &StudyContentRepository{client: client}
}

// Flashcards

func (r *StudyContentRepository) CreateFlashcard(ctx context.Context, card *models.Flashcard) error {
	if card.CardID == "" {
		card.CardID = uuid.New().String()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}

	query := r.client.Query(r.client.Stmt.CreateFlashcard,
		card.OwnerID, card.CardID, card.Topic, card.Front, card.Back,
		card.Difficulty, card.CreatedAt, card.UpdatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create flashcard",
			zap.String("owner_id", card.OwnerID),
			zap.Error(err))
		return fmt.Errorf("failed to create flashcard: %w", err)
	}
	return nil
}

func (r *StudyContentRepository) GetFlashcard(ctx context.Context, ownerID, cardID string) (*models.Flashcard, error) {
	card := &models.Flashcard{}

	query := r.client.Query(r.client.Stmt.GetFlashcard, ownerID, cardID).WithContext(ctx)
	err := r.client.ScanWithRetry(query,
		&card.OwnerID, &card.CardID, &card.Topic, &card.Front, &card.Back,
		&card.Difficulty, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: flashcard %s", ErrNotFound, cardID)
		}
		return nil, fmt.Errorf("failed to get flashcard: %w", err)
	}
	return card, nil
}

func (r *StudyContentRepository) ListFlashcards(ctx context.Context, ownerID string) ([]*models.Flashcard, error) {
	iter := r.client.Query(r.client.Stmt.ListFlashcards, ownerID).WithContext(ctx).Iter()

	var cards []*models.Flashcard
	for {
		card := &models.Flashcard{}
		if !iter.Scan(&card.OwnerID, &card.CardID, &card.Topic, &card.Front,
			&card.Back, &card.Difficulty, &card.CreatedAt, &card.UpdatedAt) {
			break
		}
		cards = append(cards, card)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list flashcards: %w", err)
	}
	return cards, nil
}

func (r *StudyContentRepository) DeleteFlashcard(ctx context.Context, ownerID, cardID string) error {
	query := r.client.Query(r.client.Stmt.DeleteFlashcard, ownerID, cardID).WithContext(ctx)
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to delete flashcard: %w", err)
	}
	return nil
}

// Quizzes (questions are stored as a JSON blob inside the row)

func (r *StudyContentRepository) CreateQuiz(ctx context.Context, quiz *models.Quiz) error {
	if quiz.QuizID == "" {
		quiz.QuizID = uuid.New().String()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}

	questionsJSON, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("failed to encode quiz questions: %w", err)
	}

	query := r.client.Query(r.client.Stmt.CreateQuiz,
		quiz.OwnerID, quiz.QuizID, quiz.Title, quiz.Topic,
		string(questionsJSON), quiz.CreatedAt, quiz.UpdatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create quiz",
			zap.String("owner_id", quiz.OwnerID),
			zap.Error(err))
		return fmt.Errorf("failed to create quiz: %w", err)
	}
	return nil
}

func (r *StudyContentRepository) GetQuiz(ctx context.Context, ownerID, quizID string) (*models.Quiz, error) {
	quiz := &models.Quiz{}
	var questionsJSON string

	query := r.client.Query(r.client.Stmt.GetQuiz, ownerID, quizID).WithContext(ctx)
	err := r.client.ScanWithRetry(query,
		&quiz.OwnerID, &quiz.QuizID, &quiz.Title, &quiz.Topic,
		&questionsJSON, &quiz.CreatedAt, &quiz.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: quiz %s", ErrNotFound, quizID)
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if questionsJSON != "" {
		if err := json.Unmarshal([]byte(questionsJSON), &quiz.Questions); err != nil {
			return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
		}
	}
	return quiz, nil
}

func (r *StudyContentRepository) ListQuizzes(ctx context.Context, ownerID string) ([]*models.Quiz, error) {
	iter := r.client.Query(r.client.Stmt.ListQuizzes, ownerID).WithContext(ctx).Iter()

	var quizzes []*models.Quiz
	for {
		quiz := &models.Quiz{}
		var questionsJSON string
		if !iter.Scan(&quiz.OwnerID, &quiz.QuizID, &quiz.Title, &quiz.Topic,
			&questionsJSON, &quiz.CreatedAt, &quiz.UpdatedAt) {
			break
		}
		if questionsJSON != "" {
			if err := json.Unmarshal([]byte(questionsJSON), &quiz.Questions); err != nil {
				return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
			}
		}
		quizzes = append(quizzes, quiz)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

func (r *StudyContentRepository) DeleteQuiz(ctx context.Context, ownerID, quizID string) error {
	query := r.client.Query(r.client.Stmt.DeleteQuiz, ownerID, quizID).WithContext(ctx)
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}
	return nil
}

// Study notes

func (r *StudyContentRepository) CreateNote(ctx context.Context, note *models.StudyNote) error {
	if note.NoteID == "" {
		note.NoteID = uuid.New().String()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	query := r.client.Query(r.client.Stmt.CreateNote,
		note.OwnerID, note.NoteID, note.Title, note.Topic, note.Body,
		note.CreatedAt, note.UpdatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create study note",
			zap.String("owner_id", note.OwnerID),
			zap.Error(err))
		return fmt.Errorf("failed to create study note: %w", err)
	}
	return nil
}

func (r *StudyContentRepository) GetNote(ctx context.Context, ownerID, noteID string) (*models.StudyNote, error) {
	note := &models.StudyNote{}

	query := r.client.Query(r.client.Stmt.GetNote, ownerID, noteID).WithContext(ctx)
	err := r.client.ScanWithRetry(query,
		&note.OwnerID, &note.NoteID, &note.Title, &note.Topic, &note.Body,
		&note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: note %s", ErrNotFound, noteID)
		}
		return nil, fmt.Errorf("failed to get study note: %w", err)
	}
	return note, nil
}

func (r *StudyContentRepository) ListNotes(ctx context.Context, ownerID string) ([]*models.StudyNote, error) {
	iter := r.client.Query(r.client.Stmt.ListNotes, ownerID).WithContext(ctx).Iter()

	var notes []*models.StudyNote
	for {
		note := &models.StudyNote{}
		if !iter.Scan(&note.OwnerID, &note.NoteID, &note.Title, &note.Topic,
			&note.Body, &note.CreatedAt, &note.UpdatedAt) {
			break
		}
		notes = append(notes, note)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list study notes: %w", err)
	}
	return notes, nil
}

func (r *StudyContentRepository) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	query := r.client.Query(r.client.Stmt.DeleteNote, ownerID, noteID).WithContext(ctx)
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to delete study note: %w", err)
	}
	return nil
}

// Tutor materials

func (r *StudyContentRepository) CreateMaterial(ctx context.Context, material *models.TutorMaterial) error {
	if material.MaterialID == "" {
		material.MaterialID = uuid.New().String()
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}

	query := r.client.Query(r.client.Stmt.CreateMaterial,
		material.TutorID, material.MaterialID, material.Title,
		material.Subject, material.Description, material.FileURL,
		material.CreatedAt, material.UpdatedAt,
	).WithContext(ctx)

	if err := query.Exec(); err != nil {
		util.Error("Failed to create tutor material",
			zap.String("tutor_id", material.TutorID),
			zap.Error(err))
		return fmt.Errorf("failed to create tutor material: %w", err)
	}
	return nil
}

func (r *StudyContentRepository) GetMaterial(ctx context.Context, tutorID, materialID string) (*models.TutorMaterial, error) {
	material := &models.TutorMaterial{}

	query := r.client.Query(r.client.Stmt.GetMaterial, tutorID, materialID).WithContext(ctx)
	err := r.client.ScanWithRetry(query,
		&material.TutorID, &material.MaterialID, &material.Title,
		&material.Subject, &material.Description, &material.FileURL,
		&material.CreatedAt, &material.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("%w: material %s", ErrNotFound, materialID)
		}
		return nil, fmt.Errorf("failed to get tutor material: %w", err)
	}
	return material, nil
}

func (r *StudyContentRepository) ListMaterials(ctx context.Context, tutorID string) ([]*models.TutorMaterial, error) {
	iter := r.client.Query(r.client.Stmt.ListMaterials, tutorID).WithContext(ctx).Iter()

	var materials []*models.TutorMaterial
	for {
		material := &models.TutorMaterial{}
		if !iter.Scan(&material.TutorID, &material.MaterialID, &material.Title,
			&material.Subject, &material.Description, &material.FileURL,
			&material.CreatedAt, &material.UpdatedAt) {
			break
		}
		materials = append(materials, material)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list tutor materials: %w", err)
	}
	return materials, nil
}

func (r *StudyContentRepository) DeleteMaterial(ctx context.Context, tutorID, materialID string) error {
	query := r.client.Query(r.client.Stmt.DeleteMaterial, tutorID, materialID).WithContext(ctx)
	if err := query.Exec(); err != nil {
		return fmt.Errorf("failed to delete tutor material: %w", err)
	}
	return nil
}
