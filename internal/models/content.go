package models

import "time"

// Flashcard is a single front/back study card owned by a profile.
type Flashcard struct {
	OwnerID    string     `db:"owner_id" json:"owner_id"`
	CardID     string     `db:"card_id" json:"id"`
	Topic      string     `db:"topic" json:"topic"`
	Front      string     `db:"front" json:"front"`
	Back       string     `db:"back" json:"back"`
	Difficulty int        `db:"difficulty" json:"difficulty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// QuizQuestion is embedded in a quiz; questions are not addressable on
// their own.
type QuizQuestion struct {
	Prompt  string   `json:"prompt"`
	Choices []string `json:"choices"`
	Answer  int      `json:"answer"`
}

// Quiz is an ordered set of questions owned by a profile.
type Quiz struct {
	OwnerID   string         `db:"owner_id" json:"owner_id"`
	QuizID    string         `db:"quiz_id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Topic     string         `db:"topic" json:"topic"`
	Questions []QuizQuestion `db:"questions" json:"questions"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}

// StudyNote is free-form note text owned by a profile; indexed into
// Elasticsearch on every write.
type StudyNote struct {
	OwnerID   string     `db:"owner_id" json:"owner_id"`
	NoteID    string     `db:"note_id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Topic     string     `db:"topic" json:"topic"`
	Body      string     `db:"body" json:"body"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// TutorMaterial is teaching material uploaded by a tutor; indexed into
// Elasticsearch on every write.
type TutorMaterial struct {
	TutorID     string     `db:"tutor_id" json:"tutor_id"`
	MaterialID  string     `db:"material_id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Subject     string     `db:"subject" json:"subject"`
	Description string     `db:"description" json:"description"`
	FileURL     string     `db:"file_url" json:"file_url,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
