package query

import (
	"context"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/enrollment"
	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory stubs shared by the query handler tests.
// ──────────────────────────────────────────────────────────────────────────────

type stubExamRepo struct {
	exams map[shared.ID]*exam.Exam
}

func newStubExamRepo(exams ...*exam.Exam) *stubExamRepo {
	r := &stubExamRepo{exams: make(map[shared.ID]*exam.Exam)}
	for _, e := range exams {
		r.exams[e.ID] = e
	}
	return r
}

func (r *stubExamRepo) Create(_ context.Context, e *exam.Exam) error {
	r.exams[e.ID] = e
	return nil
}

func (r *stubExamRepo) GetByID(_ context.Context, id shared.ID) (*exam.Exam, error) {
	e, ok := r.exams[id]
	if !ok {
		return nil, shared.ErrExamNotFound
	}
	return e.Clone(), nil
}

func (r *stubExamRepo) Update(_ context.Context, e *exam.Exam) error {
	r.exams[e.ID] = e
	return nil
}

func (r *stubExamRepo) List(_ context.Context, filter exam.Filter, _ shared.Pagination) ([]*exam.Exam, error) {
	result := make([]*exam.Exam, 0)
	for _, e := range r.exams {
		if filter.OnlyActive && !e.IsActive {
			continue
		}
		result = append(result, e.Clone())
	}
	return result, nil
}

func (r *stubExamRepo) Count(ctx context.Context, filter exam.Filter) (int, error) {
	list, _ := r.List(ctx, filter, shared.DefaultPagination())
	return len(list), nil
}

func (r *stubExamRepo) Exists(_ context.Context, id shared.ID) (bool, error) {
	_, ok := r.exams[id]
	return ok, nil
}

type stubGradeRepo struct {
	grades []*grade.Grade
	audits []*grade.AuditEntry
}

func (r *stubGradeRepo) CreateWithAudit(_ context.Context, g *grade.Grade, entry *grade.AuditEntry) error {
	r.grades = append(r.grades, g)
	r.audits = append(r.audits, entry)
	return nil
}

func (r *stubGradeRepo) UpdateWithAudit(_ context.Context, g *grade.Grade, entry *grade.AuditEntry) error {
	r.audits = append(r.audits, entry)
	return nil
}

func (r *stubGradeRepo) DeleteWithAudit(_ context.Context, id shared.ID, entry *grade.AuditEntry) error {
	kept := r.grades[:0]
	for _, g := range r.grades {
		if g.ID != id {
			kept = append(kept, g)
		}
	}
	r.grades = kept
	r.audits = append(r.audits, entry)
	return nil
}

func (r *stubGradeRepo) GetByID(_ context.Context, id shared.ID) (*grade.Grade, error) {
	for _, g := range r.grades {
		if g.ID == id {
			return g.Clone(), nil
		}
	}
	return nil, shared.ErrGradeNotFound
}

func (r *stubGradeRepo) Exists(_ context.Context, key grade.Key) (bool, error) {
	for _, g := range r.grades {
		if g.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubGradeRepo) ListByExam(_ context.Context, examID shared.ID, page shared.Pagination) ([]*grade.Grade, error) {
	matched := make([]*grade.Grade, 0)
	for _, g := range r.grades {
		if g.ExamID == examID {
			matched = append(matched, g.Clone())
		}
	}
	offset := page.Offset()
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + page.Limit()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *stubGradeRepo) ListByCompetitor(_ context.Context, competitorID shared.ID, _ shared.Pagination) ([]*grade.Grade, error) {
	result := make([]*grade.Grade, 0)
	for _, g := range r.grades {
		if g.CompetitorID == competitorID {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

func (r *stubGradeRepo) ListByExamAndCompetitor(_ context.Context, examID, competitorID shared.ID) ([]*grade.Grade, error) {
	result := make([]*grade.Grade, 0)
	for _, g := range r.grades {
		if g.ExamID == examID && g.CompetitorID == competitorID {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

func (r *stubGradeRepo) ScoresByCompetence(_ context.Context, examID, competenceID shared.ID) ([]float64, error) {
	scores := make([]float64, 0)
	for _, g := range r.grades {
		if g.ExamID == examID && g.CompetenceID == competenceID {
			scores = append(scores, g.Score.Value())
		}
	}
	return scores, nil
}

func (r *stubGradeRepo) ScoresByExam(_ context.Context, examID shared.ID) ([]float64, error) {
	scores := make([]float64, 0)
	for _, g := range r.grades {
		if g.ExamID == examID {
			scores = append(scores, g.Score.Value())
		}
	}
	return scores, nil
}

func (r *stubGradeRepo) CountByExam(ctx context.Context, examID shared.ID) (int, error) {
	scores, _ := r.ScoresByExam(ctx, examID)
	return len(scores), nil
}

func (r *stubGradeRepo) DistinctCompetitors(_ context.Context, examID shared.ID) (int, error) {
	seen := make(map[shared.ID]struct{})
	for _, g := range r.grades {
		if g.ExamID == examID {
			seen[g.CompetitorID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (r *stubGradeRepo) AverageForCompetitor(_ context.Context, competitorID, competenceID shared.ID) (*float64, error) {
	sum, count := 0.0, 0
	for _, g := range r.grades {
		if g.CompetitorID != competitorID {
			continue
		}
		if !competenceID.IsEmpty() && g.CompetenceID != competenceID {
			continue
		}
		sum += g.Score.Value()
		count++
	}
	if count == 0 {
		return nil, nil
	}
	avg := sum / float64(count)
	return &avg, nil
}

type stubAuditRepo struct {
	entries []*grade.AuditEntry
}

func (r *stubAuditRepo) Create(_ context.Context, entry *grade.AuditEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubAuditRepo) ListByGrade(_ context.Context, gradeID shared.ID) ([]*grade.AuditEntry, error) {
	result := make([]*grade.AuditEntry, 0)
	for _, e := range r.entries {
		if e.GradeID == gradeID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *stubAuditRepo) ListByUser(_ context.Context, userID shared.ID, _ shared.Pagination) ([]*grade.AuditEntry, error) {
	result := make([]*grade.AuditEntry, 0)
	for _, e := range r.entries {
		if e.ChangedBy == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

type stubDirectory struct {
	known map[shared.ID]bool
}

func (d *stubDirectory) Exists(_ context.Context, competitorID shared.ID) (bool, error) {
	return d.known[competitorID], nil
}

var _ enrollment.CompetitorDirectory = (*stubDirectory)(nil)

// memStatsCache is an in-memory StatisticsCache recording hit/set counts.
type memStatsCache struct {
	stored map[string]*ExamStatisticsResult

	gets         int
	sets         int
	invalidation int
}

func newMemStatsCache() *memStatsCache {
	return &memStatsCache{stored: make(map[string]*ExamStatisticsResult)}
}

func (c *memStatsCache) GetExamStatistics(_ context.Context, examID string) (*ExamStatisticsResult, error) {
	c.gets++
	return c.stored[examID], nil
}

func (c *memStatsCache) SetExamStatistics(_ context.Context, result *ExamStatisticsResult, _ time.Duration) error {
	c.sets++
	c.stored[result.ExamID] = result
	return nil
}

func (c *memStatsCache) InvalidateExam(_ context.Context, examID string) error {
	c.invalidation++
	delete(c.stored, examID)
	return nil
}
