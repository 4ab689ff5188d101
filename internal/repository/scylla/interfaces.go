package scylla

import (
	"context"
	"errors"
	"time"

	"mathmentor-api/internal/models"
)

// ErrNotFound is returned by lookups when no row matches. Callers use
// errors.Is so repositories can wrap it with detail.
var ErrNotFound = errors.New("not found")

// AdminRepository persists admin credentials. Provisioning is
// out-of-band; the login path only reads rows and mutates the attempt
// counters.
type AdminRepository interface {
	CreateAdmin(ctx context.Context, cred *models.AdminCredential) error
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminCredential, error)
	GetAdminByID(ctx context.Context, adminID string) (*models.AdminCredential, error)
	RecordLoginSuccess(ctx context.Context, email string, at time.Time) error
	RecordLoginFailure(ctx context.Context, email string, attempts int, lockedUntil *time.Time) error
	HealthCheck(ctx context.Context) error
}

// SessionRepository persists server-side admin sessions. Validation is
// a pure read; expired rows are left in place until deleted by logout
// or TTL.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.AdminSession) error
	GetSessionByToken(ctx context.Context, token string) (*models.AdminSession, error)
	DeleteSession(ctx context.Context, token string) error
}

// ProfileRepository persists platform member profiles.
type ProfileRepository interface {
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfileByID(ctx context.Context, bucket int, profileID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
}

// ContentRepository persists the study content collections.
type ContentRepository interface {
	CreateFlashcard(ctx context.Context, card *models.Flashcard) error
	GetFlashcard(ctx context.Context, ownerID, cardID string) (*models.Flashcard, error)
	ListFlashcards(ctx context.Context, ownerID string) ([]*models.Flashcard, error)
	DeleteFlashcard(ctx context.Context, ownerID, cardID string) error

	CreateQuiz(ctx context.Context, quiz *models.Quiz) error
	GetQuiz(ctx context.Context, ownerID, quizID string) (*models.Quiz, error)
	ListQuizzes(ctx context.Context, ownerID string) ([]*models.Quiz, error)
	DeleteQuiz(ctx context.Context, ownerID, quizID string) error

	CreateNote(ctx context.Context, note *models.StudyNote) error
	GetNote(ctx context.Context, ownerID, noteID string) (*models.StudyNote, error)
	ListNotes(ctx context.Context, ownerID string) ([]*models.StudyNote, error)
	DeleteNote(ctx context.Context, ownerID, noteID string) error

	CreateMaterial(ctx context.Context, material *models.TutorMaterial) error
	GetMaterial(ctx context.Context, tutorID, materialID string) (*models.TutorMaterial, error)
	ListMaterials(ctx context.Context, tutorID string) ([]*models.TutorMaterial, error)
	DeleteMaterial(ctx context.Context, tutorID, materialID string) error
}
