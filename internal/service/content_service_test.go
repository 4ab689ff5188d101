package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"mathmentor-api/internal/config"
	"mathmentor-api/internal/models"
	"mathmentor-api/internal/repository/scylla"
)

// fakeContentRepo keeps every collection in memory, keyed by owner.
type fakeContentRepo struct {
	mu        sync.Mutex
	cards     map[string]map[string]*models.Flashcard
	quizzes   map[string]map[string]*models.Quiz
	notes     map[string]map[string]*models.StudyNote
	materials map[string]map[string]*models.TutorMaterial
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{
		cards:     make(map[string]map[string]*models.Flashcard),
		quizzes:   make(map[string]map[string]*models.Quiz),
		notes:     make(map[string]map[string]*models.StudyNote),
		materials: make(map[string]map[string]*models.TutorMaterial),
	}
}

func (r *fakeContentRepo) CreateFlashcard(_ context.Context, card *models.Flashcard) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cards[card.OwnerID] == nil {
		r.cards[card.OwnerID] = make(map[string]*models.Flashcard)
	}
	r.cards[card.OwnerID][card.CardID] = card
	return nil
}

func (r *fakeContentRepo) GetFlashcard(_ context.Context, ownerID, cardID string) (*models.Flashcard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if card, ok := r.cards[ownerID][cardID]; ok {
		return card, nil
	}
	return nil, scylla.ErrNotFound
}

func (r *fakeContentRepo) ListFlashcards(_ context.Context, ownerID string) ([]*models.Flashcard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Flashcard, 0, len(r.cards[ownerID]))
	for _, card := range r.cards[ownerID] {
		out = append(out, card)
	}
	return out, nil
}

func (r *fakeContentRepo) DeleteFlashcard(_ context.Context, ownerID, cardID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cards[ownerID], cardID)
	return nil
}

func (r *fakeContentRepo) CreateQuiz(_ context.Context, quiz *models.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.quizzes[quiz.OwnerID] == nil {
		r.quizzes[quiz.OwnerID] = make(map[string]*models.Quiz)
	}
	r.quizzes[quiz.OwnerID][quiz.QuizID] = quiz
	return nil
}

func (r *fakeContentRepo) GetQuiz(_ context.Context, ownerID, quizID string) (*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if quiz, ok := r.quizzes[ownerID][quizID]; ok {
		return quiz, nil
	}
	return nil, scylla.ErrNotFound
}

func (r *fakeContentRepo) ListQuizzes(_ context.Context, ownerID string) ([]*models.Quiz, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Quiz, 0, len(r.quizzes[ownerID]))
	for _, quiz := range r.quizzes[ownerID] {
		out = append(out, quiz)
	}
	return out, nil
}

func (r *fakeContentRepo) DeleteQuiz(_ context.Context, ownerID, quizID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.quizzes[ownerID], quizID)
	return nil
}

func (r *fakeContentRepo) CreateNote(_ context.Context, note *models.StudyNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notes[note.OwnerID] == nil {
		r.notes[note.OwnerID] = make(map[string]*models.StudyNote)
	}
	r.notes[note.OwnerID][note.NoteID] = note
	return nil
}

func (r *fakeContentRepo) GetNote(_ context.Context, ownerID, noteID string) (*models.StudyNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if note, ok := r.notes[ownerID][noteID]; ok {
		return note, nil
	}
	return nil, scylla.ErrNotFound
}

func (r *fakeContentRepo) ListNotes(_ context.Context, ownerID string) ([]*models.StudyNote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.StudyNote, 0, len(r.notes[ownerID]))
	for _, note := range r.notes[ownerID] {
		out = append(out, note)
	}
	return out, nil
}

func (r *fakeContentRepo) DeleteNote(_ context.Context, ownerID, noteID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notes[ownerID], noteID)
	return nil
}

func (r *fakeContentRepo) CreateMaterial(_ context.Context, material *models.TutorMaterial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.materials[material.TutorID] == nil {
		r.materials[material.TutorID] = make(map[string]*models.TutorMaterial)
	}
	r.materials[material.TutorID][material.MaterialID] = material
	return nil
}

func (r *fakeContentRepo) GetMaterial(_ context.Context, tutorID, materialID string) (*models.TutorMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if material, ok := r.materials[tutorID][materialID]; ok {
		return material, nil
	}
	return nil, scylla.ErrNotFound
}

func (r *fakeContentRepo) ListMaterials(_ context.Context, tutorID string) ([]*models.TutorMaterial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.TutorMaterial, 0, len(r.materials[tutorID]))
	for _, material := range r.materials[tutorID] {
		out = append(out, material)
	}
	return out, nil
}

func (r *fakeContentRepo) DeleteMaterial(_ context.Context, tutorID, materialID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.materials[tutorID], materialID)
	return nil
}

func newTestContentService(t *testing.T) (*ContentService, *fakeContentRepo) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Elasticsearch.NoteIndex = "study_notes"
	cfg.Elasticsearch.MaterialIndex = "tutor_materials"
	repo := newFakeContentRepo()
	return NewContentService(repo, nil, cfg, zap.NewNop()), repo
}

func TestFlashcardLifecycle(t *testing.T) {
	svc, _ := newTestContentService(t)
	ctx := context.Background()

	card, err := svc.CreateFlashcard(ctx, "owner-1", &CreateFlashcardRequest{
		Topic: "algebra",
		Front: "x + x = ?",
		Back:  "2x",
	})
	if err != nil {
		t.Fatalf("CreateFlashcard: %v", err)
	}
	if card.CardID == "" || card.OwnerID != "owner-1" {
		t.Fatalf("card = %+v", card)
	}

	got, err := svc.GetFlashcard(ctx, "owner-1", card.CardID)
	if err != nil {
		t.Fatalf("GetFlashcard: %v", err)
	}
	if got.Front != "x + x = ?" {
		t.Errorf("Front = %q", got.Front)
	}

	cards, err := svc.ListFlashcards(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListFlashcards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("len(cards) = %d, want 1", len(cards))
	}

	if err := svc.DeleteFlashcard(ctx, "owner-1", card.CardID); err != nil {
		t.Fatalf("DeleteFlashcard: %v", err)
	}
	if _, err := svc.GetFlashcard(ctx, "owner-1", card.CardID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetFlashcard after delete: got %v, want ErrNotFound", err)
	}
}

func TestCreateFlashcardValidation(t *testing.T) {
	svc, _ := newTestContentService(t)

	_, err := svc.CreateFlashcard(context.Background(), "owner-1", &CreateFlashcardRequest{Front: "only front"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("CreateFlashcard: got %v, want ErrInvalidInput", err)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	svc, _ := newTestContentService(t)
	ctx := context.Background()

	cases := []*CreateQuizRequest{
		{Title: "no questions"},
		{Title: "one choice", Questions: []models.QuizQuestion{{Prompt: "p", Choices: []string{"a"}, Answer: 0}}},
		{Title: "bad answer", Questions: []models.QuizQuestion{{Prompt: "p", Choices: []string{"a", "b"}, Answer: 2}}},
		{Title: "negative answer", Questions: []models.QuizQuestion{{Prompt: "p", Choices: []string{"a", "b"}, Answer: -1}}},
		{Title: "empty prompt", Questions: []models.QuizQuestion{{Choices: []string{"a", "b"}, Answer: 0}}},
	}
	for _, req := range cases {
		if _, err := svc.CreateQuiz(ctx, "owner-1", req); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("CreateQuiz(%s): got %v, want ErrInvalidInput", req.Title, err)
		}
	}

	quiz, err := svc.CreateQuiz(ctx, "owner-1", &CreateQuizRequest{
		Title: "fractions",
		Topic: "arithmetic",
		Questions: []models.QuizQuestion{
			{Prompt: "1/2 + 1/2 = ?", Choices: []string{"1", "2", "1/4"}, Answer: 0},
		},
	})
	if err != nil {
		t.Fatalf("CreateQuiz valid: %v", err)
	}
	if len(quiz.Questions) != 1 {
		t.Fatalf("Questions = %d, want 1", len(quiz.Questions))
	}
}

func TestNoteLifecycleWithoutSearchBackend(t *testing.T) {
	svc, _ := newTestContentService(t)
	ctx := context.Background()

	// Elasticsearch is absent; note writes must still succeed.
	note, err := svc.CreateNote(ctx, "owner-1", &CreateNoteRequest{
		Title: "Pythagoras",
		Topic: "geometry",
		Body:  "a^2 + b^2 = c^2",
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}

	if err := svc.DeleteNote(ctx, "owner-1", note.NoteID); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}

	if _, err := svc.Search(ctx, "pythagoras", 10); err == nil {
		t.Fatal("Search without a backend should error")
	}
}

func TestSearchValidation(t *testing.T) {
	svc, _ := newTestContentService(t)

	if _, err := svc.Search(context.Background(), "", 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Search empty query: got %v, want ErrInvalidInput", err)
	}
}
