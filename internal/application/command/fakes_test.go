package command

import (
	"context"
	"sync"

	"github.com/skills-hub/assessment-core/internal/domain/enrollment"
	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory fakes shared by the command handler tests.
// ──────────────────────────────────────────────────────────────────────────────

type fakeExamRepo struct {
	mu    sync.Mutex
	exams map[shared.ID]*exam.Exam
}

func newFakeExamRepo() *fakeExamRepo {
	return &fakeExamRepo{exams: make(map[shared.ID]*exam.Exam)}
}

func (r *fakeExamRepo) Create(_ context.Context, e *exam.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[e.ID] = e.Clone()
	return nil
}

func (r *fakeExamRepo) GetByID(_ context.Context, id shared.ID) (*exam.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exams[id]
	if !ok {
		return nil, shared.ErrExamNotFound
	}
	return e.Clone(), nil
}

func (r *fakeExamRepo) Update(_ context.Context, e *exam.Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exams[e.ID]; !ok {
		return shared.ErrExamNotFound
	}
	r.exams[e.ID] = e.Clone()
	return nil
}

func (r *fakeExamRepo) List(_ context.Context, filter exam.Filter, _ shared.Pagination) ([]*exam.Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*exam.Exam, 0)
	for _, e := range r.exams {
		if filter.OnlyActive && !e.IsActive {
			continue
		}
		result = append(result, e.Clone())
	}
	return result, nil
}

func (r *fakeExamRepo) Count(ctx context.Context, filter exam.Filter) (int, error) {
	list, _ := r.List(ctx, filter, shared.DefaultPagination())
	return len(list), nil
}

func (r *fakeExamRepo) Exists(_ context.Context, id shared.ID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.exams[id]
	return ok, nil
}

type fakeGradeRepo struct {
	mu     sync.Mutex
	grades map[shared.ID]*grade.Grade
	audits []*grade.AuditEntry

	failCreate error
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{grades: make(map[shared.ID]*grade.Grade)}
}

func (r *fakeGradeRepo) CreateWithAudit(_ context.Context, g *grade.Grade, entry *grade.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	for _, existing := range r.grades {
		if existing.Key() == g.Key() {
			return shared.ErrGradeAlreadyExists
		}
	}
	r.grades[g.ID] = g.Clone()
	r.audits = append(r.audits, entry)
	return nil
}

func (r *fakeGradeRepo) UpdateWithAudit(_ context.Context, g *grade.Grade, entry *grade.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grades[g.ID]; !ok {
		return shared.ErrGradeNotFound
	}
	r.grades[g.ID] = g.Clone()
	r.audits = append(r.audits, entry)
	return nil
}

func (r *fakeGradeRepo) DeleteWithAudit(_ context.Context, id shared.ID, entry *grade.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grades[id]; !ok {
		return shared.ErrGradeNotFound
	}
	delete(r.grades, id)
	r.audits = append(r.audits, entry)
	return nil
}

func (r *fakeGradeRepo) GetByID(_ context.Context, id shared.ID) (*grade.Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grades[id]
	if !ok {
		return nil, shared.ErrGradeNotFound
	}
	return g.Clone(), nil
}

func (r *fakeGradeRepo) Exists(_ context.Context, key grade.Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.grades {
		if g.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeGradeRepo) ListByExam(_ context.Context, examID shared.ID, _ shared.Pagination) ([]*grade.Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*grade.Grade, 0)
	for _, g := range r.grades {
		if g.ExamID == examID {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

func (r *fakeGradeRepo) ListByCompetitor(_ context.Context, competitorID shared.ID, _ shared.Pagination) ([]*grade.Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*grade.Grade, 0)
	for _, g := range r.grades {
		if g.CompetitorID == competitorID {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

func (r *fakeGradeRepo) ListByExamAndCompetitor(_ context.Context, examID, competitorID shared.ID) ([]*grade.Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*grade.Grade, 0)
	for _, g := range r.grades {
		if g.ExamID == examID && g.CompetitorID == competitorID {
			result = append(result, g.Clone())
		}
	}
	return result, nil
}

func (r *fakeGradeRepo) ScoresByCompetence(_ context.Context, examID, competenceID shared.ID) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make([]float64, 0)
	for _, g := range r.grades {
		if g.ExamID == examID && g.CompetenceID == competenceID {
			scores = append(scores, g.Score.Value())
		}
	}
	return scores, nil
}

func (r *fakeGradeRepo) ScoresByExam(_ context.Context, examID shared.ID) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make([]float64, 0)
	for _, g := range r.grades {
		if g.ExamID == examID {
			scores = append(scores, g.Score.Value())
		}
	}
	return scores, nil
}

func (r *fakeGradeRepo) CountByExam(ctx context.Context, examID shared.ID) (int, error) {
	scores, _ := r.ScoresByExam(ctx, examID)
	return len(scores), nil
}

func (r *fakeGradeRepo) DistinctCompetitors(_ context.Context, examID shared.ID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[shared.ID]struct{})
	for _, g := range r.grades {
		if g.ExamID == examID {
			seen[g.CompetitorID] = struct{}{}
		}
	}
	return len(seen), nil
}

func (r *fakeGradeRepo) AverageForCompetitor(_ context.Context, competitorID, competenceID shared.ID) (*float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
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

type fakeEnrollments struct {
	enrollments []*enrollment.Enrollment
}

func (f *fakeEnrollments) GetByCompetitorAndModality(_ context.Context, competitorID, modalityID shared.ID) (*enrollment.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.CompetitorID == competitorID && e.ModalityID == modalityID {
			return e, nil
		}
	}
	return nil, shared.ErrEnrollmentNotFound
}

func (f *fakeEnrollments) GetByEvaluator(_ context.Context, evaluatorID shared.ID) ([]*enrollment.Enrollment, error) {
	result := make([]*enrollment.Enrollment, 0)
	for _, e := range f.enrollments {
		if e.EvaluatorID == evaluatorID {
			result = append(result, e)
		}
	}
	return result, nil
}

type fakeCatalog struct {
	competences map[shared.ID]*enrollment.Competence
}

func (f *fakeCatalog) GetCompetence(_ context.Context, id shared.ID) (*enrollment.Competence, error) {
	c, ok := f.competences[id]
	if !ok {
		return nil, shared.ErrCompetenceNotFound
	}
	return c, nil
}

func (f *fakeCatalog) GetModality(_ context.Context, id shared.ID) (*enrollment.Modality, error) {
	return nil, shared.ErrModalityNotFound
}

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
