package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mathmentor-api/internal/models"
)

// Dashboard is the aggregate view for one profile: the profile itself
// plus counts and recent items from the collections its role works
// with. Students see their study collections, tutors their materials,
// admins everything.
type Dashboard struct {
	Profile         *ProfileView            `json:"profile"`
	FlashcardCount  int                     `json:"flashcard_count"`
	QuizCount       int                     `json:"quiz_count"`
	NoteCount       int                     `json:"note_count"`
	MaterialCount   int                     `json:"material_count"`
	RecentNotes     []*models.StudyNote     `json:"recent_notes,omitempty"`
	RecentMaterials []*models.TutorMaterial `json:"recent_materials,omitempty"`
}

const dashboardRecentLimit = 5

// DashboardService aggregates a profile's content in parallel. One
// failing leg fails the whole dashboard; partial dashboards would be
// misleading.
type DashboardService struct {
	profiles *ProfileService
	content  *ContentService
	logger   *zap.Logger
}

func NewDashboardService(profiles *ProfileService, content *ContentService, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		profiles: profiles,
		content:  content,
		logger:   logger,
	}
}

// GetDashboard resolves the profile first, then fans out one query per
// collection the profile's role uses and joins the results.
func (s *DashboardService) GetDashboard(ctx context.Context, profileID string) (*Dashboard, error) {
	profile, err := s.profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{Profile: profile}

	studyLegs := profile.Role == models.RoleStudent || profile.Role == models.RoleAdmin
	materialLegs := profile.Role == models.RoleTutor || profile.Role == models.RoleAdmin

	g, gctx := errgroup.WithContext(ctx)

	if studyLegs {
		g.Go(func() error {
			cards, err := s.content.ListFlashcards(gctx, profileID)
			if err != nil {
				return err
			}
			dash.FlashcardCount = len(cards)
			return nil
		})

		g.Go(func() error {
			quizzes, err := s.content.ListQuizzes(gctx, profileID)
			if err != nil {
				return err
			}
			dash.QuizCount = len(quizzes)
			return nil
		})
	}

	// Notes are shared ground: students study from them, tutors write
	// them.
	g.Go(func() error {
		notes, err := s.content.ListNotes(gctx, profileID)
		if err != nil {
			return err
		}
		dash.NoteCount = len(notes)
		dash.RecentNotes = recentNotes(notes, dashboardRecentLimit)
		return nil
	})

	if materialLegs {
		g.Go(func() error {
			materials, err := s.content.ListMaterials(gctx, profileID)
			if err != nil {
				return err
			}
			dash.MaterialCount = len(materials)
			dash.RecentMaterials = recentMaterials(materials, dashboardRecentLimit)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

func recentNotes(notes []*models.StudyNote, limit int) []*models.StudyNote {
	out := make([]*models.StudyNote, 0, limit)
	for i := len(notes) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, notes[i])
	}
	return out
}

func recentMaterials(materials []*models.TutorMaterial, limit int) []*models.TutorMaterial {
	out := make([]*models.TutorMaterial, 0, limit)
	for i := len(materials) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, materials[i])
	}
	return out
}
