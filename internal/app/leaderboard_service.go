package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"rextro-quiz-service/internal/domain"
	"rextro-quiz-service/internal/ranking"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 200

	// UnknownSchool groups students whose identity could not be resolved.
	UnknownSchool = "unknown"

	userLookupConcurrency = 8
)

// LeaderboardService computes standings from submitted attempts on every call.
// It never writes to the attempt store.
type LeaderboardService struct {
	attempts  AttemptStore
	questions QuestionRepository
	users     UserDirectory
	recorder  Recorder
	now       func() time.Time
	log       zerolog.Logger
}

func NewLeaderboardService(attempts AttemptStore, questions QuestionRepository, users UserDirectory, opts ...Option) *LeaderboardService {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &LeaderboardService{
		attempts:  attempts,
		questions: questions,
		users:     users,
		recorder:  o.recorder,
		now:       o.now,
		log:       o.log.With().Str("component", "leaderboard_service").Logger(),
	}
}

// ClampLimit applies the default for an unspecified (zero) limit and bounds the
// result to [1, MaxLeaderboardLimit].
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLeaderboardLimit
	case limit < 1:
		return 1
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	default:
		return limit
	}
}

// studentAggregate is the per-student tuple the ranking policy orders by.
type studentAggregate struct {
	studentID      string
	correctCount   int
	completionTime time.Time
	totalElapsed   int
	attempts       int
}

// standingKey is the comparable form of the four ranking fields; two students
// tie only when every field is equal.
type standingKey struct {
	correctCount int
	completion   int64
	totalElapsed int
	attempts     int
}

func (a studentAggregate) key() standingKey {
	return standingKey{
		correctCount: a.correctCount,
		completion:   a.completionTime.UnixNano(),
		totalElapsed: a.totalElapsed,
		attempts:     a.attempts,
	}
}

// compareStandings orders aggregates: more correct answers first, then the
// earlier completion time, then the lower summed elapsed time, then fewer
// attempted questions. Student ID only settles display order among exact ties.
func compareStandings(a, b studentAggregate) int {
	if c := cmp.Compare(b.correctCount, a.correctCount); c != 0 {
		return c
	}
	if c := a.completionTime.Compare(b.completionTime); c != 0 {
		return c
	}
	if c := cmp.Compare(a.totalElapsed, b.totalElapsed); c != 0 {
		return c
	}
	if c := cmp.Compare(a.attempts, b.attempts); c != 0 {
		return c
	}
	return cmp.Compare(a.studentID, b.studentID)
}

// Leaderboard returns the ranked standings for quizID, truncated to limit
// (see ClampLimit). Unknown quizzes fail with domain.ErrQuizNotFound.
func (s *LeaderboardService) Leaderboard(ctx context.Context, quizID int64, limit int) ([]domain.StandingsEntry, error) {
	if quizID <= 0 {
		return nil, domain.Invalid("quiz", "must be positive")
	}
	started := s.now()
	limit = ClampLimit(limit)

	submitted, total, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}

	aggregates := aggregateByStudent(submitted)
	slices.SortFunc(aggregates, compareStandings)

	keys := make([]standingKey, len(aggregates))
	for i, agg := range aggregates {
		keys[i] = agg.key()
	}
	ranks := ranking.Dense(keys)

	if len(aggregates) > limit {
		aggregates = aggregates[:limit]
	}

	users := s.resolveUsers(ctx, studentIDs(aggregates))
	entries := make([]domain.StandingsEntry, len(aggregates))
	for i, agg := range aggregates {
		entry := domain.StandingsEntry{
			Rank:              ranks[i],
			StudentID:         agg.studentID,
			SchoolFacingID:    agg.studentID,
			CorrectCount:      agg.correctCount,
			CorrectPercentage: CorrectPercentage(agg.correctCount, total),
			CompletionTime:    agg.completionTime,
			TotalElapsed:      agg.totalElapsed,
			Attempts:          agg.attempts,
		}
		if user, ok := users[agg.studentID]; ok {
			name := user.DisplayName
			entry.DisplayName = &name
			if user.SchoolFacingID != "" {
				entry.SchoolFacingID = user.SchoolFacingID
			}
		}
		entries[i] = entry
	}

	s.recorder.LeaderboardBuilt(s.now().Sub(started))
	return entries, nil
}

// SchoolLeaderboard groups per-student correct counts by school and ranks the
// schools by their total.
func (s *LeaderboardService) SchoolLeaderboard(ctx context.Context, quizID int64, limit int) ([]domain.SchoolStanding, error) {
	if quizID <= 0 {
		return nil, domain.Invalid("quiz", "must be positive")
	}
	started := s.now()
	limit = ClampLimit(limit)

	submitted, _, err := s.load(ctx, quizID)
	if err != nil {
		return nil, err
	}
	aggregates := aggregateByStudent(submitted)
	users := s.resolveUsers(ctx, studentIDs(aggregates))

	bySchool := make(map[string]*domain.SchoolStanding)
	for _, agg := range aggregates {
		school := UnknownSchool
		member := domain.MemberScore{StudentID: agg.studentID, Score: agg.correctCount}
		if user, ok := users[agg.studentID]; ok {
			if user.School != "" {
				school = user.School
			}
			name := user.DisplayName
			member.DisplayName = &name
		}
		standing, ok := bySchool[school]
		if !ok {
			standing = &domain.SchoolStanding{School: school}
			bySchool[school] = standing
		}
		standing.TotalScore += member.Score
		standing.Members = append(standing.Members, member)
	}

	standings := make([]domain.SchoolStanding, 0, len(bySchool))
	for _, standing := range bySchool {
		slices.SortFunc(standing.Members, func(a, b domain.MemberScore) int {
			if c := cmp.Compare(b.Score, a.Score); c != 0 {
				return c
			}
			return cmp.Compare(a.StudentID, b.StudentID)
		})
		standings = append(standings, *standing)
	}
	slices.SortFunc(standings, func(a, b domain.SchoolStanding) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.School, b.School)
	})
	ranking.Apply(standings,
		func(st domain.SchoolStanding) int { return st.TotalScore },
		ranking.Dense[int],
		func(st *domain.SchoolStanding, rank int) { st.Rank = rank },
	)
	if len(standings) > limit {
		standings = standings[:limit]
	}

	s.recorder.LeaderboardBuilt(s.now().Sub(started))
	return standings, nil
}

// load fetches submitted attempts and the quiz's question count concurrently.
func (s *LeaderboardService) load(ctx context.Context, quizID int64) ([]domain.Attempt, int, error) {
	var (
		submitted []domain.Attempt
		total     int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		submitted, err = s.attempts.ListSubmitted(gctx, quizID)
		if err != nil {
			return fmt.Errorf("leaderboard quiz=%d: list submitted: %w: %w", quizID, domain.ErrInternal, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = s.questions.CountQuestions(gctx, quizID)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("leaderboard quiz=%d: %w", quizID, err)
		}
		return fmt.Errorf("leaderboard quiz=%d: count questions: %w: %w", quizID, domain.ErrInternal, err)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return submitted, total, nil
}

// resolveUsers looks up identities with bounded concurrency. Failures are
// logged and the student is simply absent from the result.
func (s *LeaderboardService) resolveUsers(ctx context.Context, ids []string) map[string]domain.User {
	found := make([]*domain.User, len(ids))
	var g errgroup.Group
	g.SetLimit(userLookupConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			user, err := s.users.FindUser(ctx, id)
			if err != nil {
				ev := s.log.Warn()
				if errors.Is(err, domain.ErrUserNotFound) {
					ev = s.log.Debug()
				}
				ev.Err(err).Str("student", id).Msg("falling back to raw student id")
				return nil
			}
			found[i] = &user
			return nil
		})
	}
	_ = g.Wait()

	users := make(map[string]domain.User, len(ids))
	for i, user := range found {
		if user != nil {
			users[ids[i]] = *user
		}
	}
	return users
}

func aggregateByStudent(attempts []domain.Attempt) []studentAggregate {
	index := make(map[string]int)
	var out []studentAggregate
	for _, attempt := range attempts {
		if !attempt.Submitted() {
			continue
		}
		i, ok := index[attempt.StudentID]
		if !ok {
			i = len(out)
			index[attempt.StudentID] = i
			out = append(out, studentAggregate{studentID: attempt.StudentID})
		}
		agg := &out[i]
		agg.attempts++
		if attempt.Locked() {
			agg.correctCount++
		}
		if attempt.SubmittedAt.After(agg.completionTime) {
			agg.completionTime = *attempt.SubmittedAt
		}
		if attempt.ElapsedSeconds != nil {
			agg.totalElapsed += *attempt.ElapsedSeconds
		}
	}
	return out
}

func studentIDs(aggregates []studentAggregate) []string {
	ids := make([]string, len(aggregates))
	for i, agg := range aggregates {
		ids[i] = agg.studentID
	}
	return ids
}

// CorrectPercentage is correct/total as a percentage rounded to two decimals,
// bounded to [0, 100]. A quiz without questions scores 0.
func CorrectPercentage(correct, total int) float64 {
	if total <= 0 || correct <= 0 {
		return 0
	}
	pct := math.Round(float64(correct)/float64(total)*10000) / 100
	return math.Min(pct, 100)
}
