package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"mathmentor-api/internal/config"
	"mathmentor-api/internal/util"
)

// Statements holds the CQL text the repositories execute. gocql prepares
// and caches statements per node keyed by this text, so repositories get
// prepared-statement performance while every call still builds its own
// query object. A gocql.Query is not safe for concurrent use; sharing
// one per statement would let concurrent requests overwrite each
// other's bound values.
type Statements struct {
	// admin credentials
	CreateAdmin        string
	GetAdminByEmail    string
	GetAdminByID       string
	RecordLoginSuccess string
	RecordLoginFailure string

	// admin sessions
	CreateSession     string
	GetSessionByToken string
	DeleteSession     string

	// profiles
	CreateProfile  string
	GetProfileByID string
	UpdateProfile  string

	// content
	CreateFlashcard string
	GetFlashcard    string
	ListFlashcards  string
	DeleteFlashcard string

	CreateQuiz  string
	GetQuiz     string
	ListQuizzes string
	DeleteQuiz  string

	CreateNote string
	GetNote    string
	ListNotes  string
	DeleteNote string

	CreateMaterial string
	GetMaterial    string
	ListMaterials  string
	DeleteMaterial string
}

type ScyllaClient struct {
	Session *gocql.Session
	config  *config.ScyllaConfig
	Stmt    *Statements
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
		Stmt:    newStatements(),
	}

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func newStatements() *Statements {
	s := &Statements{}

	const adminColumns = `admin_id, email, password_hash, salt, is_active,
        login_attempts, locked_until, last_login, created_at`

	s.CreateAdmin = `
        INSERT INTO admins_by_email (` + adminColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s.GetAdminByEmail = `
        SELECT ` + adminColumns + ` FROM admins_by_email WHERE email = ?`

	s.GetAdminByID = `
        SELECT ` + adminColumns + ` FROM admins_by_email
        WHERE admin_id = ? ALLOW FILTERING`

	s.RecordLoginSuccess = `
        UPDATE admins_by_email
        SET last_login = ?, login_attempts = 0, locked_until = null
        WHERE email = ?`

	s.RecordLoginFailure = `
        UPDATE admins_by_email SET login_attempts = ?, locked_until = ?
        WHERE email = ?`

	s.CreateSession = `
        INSERT INTO admin_sessions (
            session_token, session_id, admin_id, admin_email,
            ip_address, user_agent, created_at, expires_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	s.GetSessionByToken = `
        SELECT session_token, session_id, admin_id, admin_email,
            ip_address, user_agent, created_at, expires_at
        FROM admin_sessions WHERE session_token = ?`

	s.DeleteSession = `
        DELETE FROM admin_sessions WHERE session_token = ?`

	const profileColumns = `bucket, profile_id, role, display_name, email,
        contact_encrypted, contact_dek, contact_key_id, grade_level,
        subjects, created_at, updated_at`

	s.CreateProfile = `
        INSERT INTO profiles (` + profileColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s.GetProfileByID = `
        SELECT ` + profileColumns + ` FROM profiles
        WHERE bucket = ? AND profile_id = ?`

	s.UpdateProfile = `
        UPDATE profiles SET display_name = ?, grade_level = ?, subjects = ?,
            updated_at = ?
        WHERE bucket = ? AND profile_id = ?`

	s.CreateFlashcard = `
        INSERT INTO flashcards (owner_id, card_id, topic, front, back,
            difficulty, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	s.GetFlashcard = `
        SELECT owner_id, card_id, topic, front, back, difficulty,
            created_at, updated_at
        FROM flashcards WHERE owner_id = ? AND card_id = ?`
	s.ListFlashcards = `
        SELECT owner_id, card_id, topic, front, back, difficulty,
            created_at, updated_at
        FROM flashcards WHERE owner_id = ?`
	s.DeleteFlashcard = `
        DELETE FROM flashcards WHERE owner_id = ? AND card_id = ?`

	s.CreateQuiz = `
        INSERT INTO quizzes (owner_id, quiz_id, title, topic,
            questions_json, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	s.GetQuiz = `
        SELECT owner_id, quiz_id, title, topic, questions_json,
            created_at, updated_at
        FROM quizzes WHERE owner_id = ? AND quiz_id = ?`
	s.ListQuizzes = `
        SELECT owner_id, quiz_id, title, topic, questions_json,
            created_at, updated_at
        FROM quizzes WHERE owner_id = ?`
	s.DeleteQuiz = `
        DELETE FROM quizzes WHERE owner_id = ? AND quiz_id = ?`

	s.CreateNote = `
        INSERT INTO study_notes (owner_id, note_id, title, topic, body,
            created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`
	s.GetNote = `
        SELECT owner_id, note_id, title, topic, body, created_at, updated_at
        FROM study_notes WHERE owner_id = ? AND note_id = ?`
	s.ListNotes = `
        SELECT owner_id, note_id, title, topic, body, created_at, updated_at
        FROM study_notes WHERE owner_id = ?`
	s.DeleteNote = `
        DELETE FROM study_notes WHERE owner_id = ? AND note_id = ?`

	s.CreateMaterial = `
        INSERT INTO tutor_materials (tutor_id, material_id, title, subject,
            description, file_url, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	s.GetMaterial = `
        SELECT tutor_id, material_id, title, subject, description, file_url,
            created_at, updated_at
        FROM tutor_materials WHERE tutor_id = ? AND material_id = ?`
	s.ListMaterials = `
        SELECT tutor_id, material_id, title, subject, description, file_url,
            created_at, updated_at
        FROM tutor_materials WHERE tutor_id = ?`
	s.DeleteMaterial = `
        DELETE FROM tutor_materials WHERE tutor_id = ? AND material_id = ?`

	return s
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

// Query builds a fresh query for one call. Callers must not hold onto
// the returned query beyond the call; each request gets its own.
func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

// ScanWithRetry retries transient read failures with linear backoff.
func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			if err == gocql.ErrNotFound {
				return err
			}
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
