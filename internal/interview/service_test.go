package interview_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/chef-interview/internal/domain"
	"github.com/ashureev/chef-interview/internal/interview"
	"github.com/ashureev/chef-interview/internal/mock"
	"github.com/ashureev/chef-interview/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc      *interview.Service
	repo     *store.MemoryStore
	gen      *mock.Generator
	renderer *mock.Renderer
	events   *mock.Notifier
}

func newFixture(t *testing.T, opts ...interview.Option) *fixture {
	t.Helper()
	f := &fixture{
		repo: store.NewMemory(),
		gen: &mock.Generator{
			InitialFn: func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
				t.Fatal("unexpected GenerateInitial")
				return nil, nil
			},
			RefineFn: func(context.Context, []domain.Turn, string) (*domain.ModelRound, error) {
				t.Fatal("unexpected GenerateRefinement")
				return nil, nil
			},
		},
		renderer: &mock.Renderer{
			RenderFn: func(context.Context, string) ([]byte, error) {
				t.Fatal("unexpected RenderPDF")
				return nil, nil
			},
		},
		events: &mock.Notifier{},
	}
	opts = append([]interview.Option{interview.WithNotifier(f.events)}, opts...)
	f.svc = interview.NewService(f.repo, testCatalog(t), f.gen, f.renderer, opts...)
	return f
}

func (f *fixture) start(t *testing.T, steps ...domain.AnsweredStep) string {
	t.Helper()
	s, err := f.svc.StartSession(context.Background())
	require.NoError(t, err)
	for _, st := range steps {
		_, err := f.svc.SubmitStep(context.Background(), s.ID, st)
		require.NoError(t, err)
	}
	return s.ID
}

func (f *fixture) session(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

func TestScenarioInitialRoundCompletes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"), step("q2", "none"))

	var gotTurns []domain.Turn
	f.gen.InitialFn = func(_ context.Context, turns []domain.Turn) (*domain.ModelRound, error) {
		gotTurns = turns
		return &domain.ModelRound{Note: "Draft", Questions: []domain.Question{}}, nil
	}

	res, err := f.svc.GenerateInitial(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateComplete, res.State)
	assert.Equal(t, "Draft", res.Round.Note)

	assert.Equal(t, []domain.Turn{
		{Question: "Favorite cuisine?", Category: "preferences", UserAnswer: "Italian"},
		{Question: "Allergies?", Category: "dietary", UserAnswer: "none"},
	}, gotTurns)

	s := f.session(t, id)
	assert.Equal(t, domain.StateComplete, s.State)
	assert.Empty(t, s.FormData)
	assert.Len(t, s.History, 1)
	assert.Len(t, s.SubmittedAnswers, 2)
	require.NotNil(t, s.Summary)
	assert.Equal(t, "Draft", s.Summary.Note)

	assert.Equal(t, []domain.EventType{
		domain.EventSessionStarted,
		domain.EventStepSubmitted,
		domain.EventStepSubmitted,
		domain.EventRoundGenerated,
	}, f.events.Types())
}

func TestScenarioFollowUpThenRefine(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"), step("q2", "none"))

	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		return &domain.ModelRound{
			Note:      "Draft",
			Questions: []domain.Question{{ID: "f1", Text: "Spice level?", Category: "taste"}},
		}, nil
	}
	res, err := f.svc.GenerateInitial(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, res.State)

	s, err := f.svc.SubmitStep(context.Background(), id, step("f1", "mild"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, s.State)

	var gotTurns []domain.Turn
	var gotPrior string
	f.gen.RefineFn = func(_ context.Context, turns []domain.Turn, prior string) (*domain.ModelRound, error) {
		gotTurns, gotPrior = turns, prior
		return &domain.ModelRound{Note: "Final", HTML: "<h1>Final</h1>"}, nil
	}
	res, err = f.svc.GenerateRefinement(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateComplete, res.State)

	assert.Equal(t, "Draft", gotPrior)
	require.Len(t, gotTurns, 3)
	assert.Equal(t, domain.Turn{Question: "Spice level?", Category: "taste", UserAnswer: "mild"}, gotTurns[2])

	s = f.session(t, id)
	assert.Equal(t, domain.StateComplete, s.State)
	assert.Len(t, s.SubmittedAnswers, 3)
	assert.Len(t, s.History, 2)
	assert.Equal(t, "Final", s.Summary.Note)
}

func TestScenarioUnknownSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Session(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.svc.SubmitStep(ctx, "unknown", step("q1", "x"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.svc.GenerateInitial(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.svc.GenerateRefinement(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = f.svc.RenderPDF(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestScenarioAbsentRoundKeepsBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"), step("q2", "none"))
	before := f.session(t, id)

	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		return nil, nil
	}
	_, err := f.svc.GenerateInitial(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrModelResponseInvalid)

	after := f.session(t, id)
	assert.Equal(t, before.FormData, after.FormData)
	assert.Empty(t, after.SubmittedAnswers)
	assert.Empty(t, after.History)
	assert.Equal(t, domain.StateActive, after.State)
	assert.Contains(t, f.events.Types(), domain.EventRoundFailed)

	// Retrying resubmits the same batch.
	var gotTurns []domain.Turn
	f.gen.InitialFn = func(_ context.Context, turns []domain.Turn) (*domain.ModelRound, error) {
		gotTurns = turns
		return &domain.ModelRound{Note: "Draft"}, nil
	}
	_, err = f.svc.GenerateInitial(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, gotTurns, 2)
	assert.Len(t, f.session(t, id).SubmittedAnswers, 2)
}

func TestScenarioPDFWithoutRound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t)

	_, err := f.svc.RenderPDF(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrRenderContentMissing)
}

func TestRenderPDF(t *testing.T) {
	t.Parallel()

	t.Run("renders latest html", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id := f.start(t, step("q1", "Italian"))
		f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
			return &domain.ModelRound{Note: "Draft", HTML: "<p>Draft</p>"}, nil
		}
		_, err := f.svc.GenerateInitial(context.Background(), id)
		require.NoError(t, err)

		f.renderer.RenderFn = func(_ context.Context, html string) ([]byte, error) {
			assert.Equal(t, "<p>Draft</p>", html)
			return []byte("%PDF-1.7"), nil
		}
		pdf, err := f.svc.RenderPDF(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []byte("%PDF-1.7"), pdf)
	})

	t.Run("latest round without html", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		id := f.start(t, step("q1", "Italian"))
		f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
			return &domain.ModelRound{Note: "Draft"}, nil
		}
		_, err := f.svc.GenerateInitial(context.Background(), id)
		require.NoError(t, err)

		_, err = f.svc.RenderPDF(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrRenderContentMissing)
	})

	t.Run("no renderer configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		svc := interview.NewService(f.repo, testCatalog(t), f.gen, nil)
		id := f.start(t, step("q1", "Italian"))
		f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
			return &domain.ModelRound{Note: "Draft", HTML: "<p>x</p>"}, nil
		}
		_, err := svc.GenerateInitial(context.Background(), id)
		require.NoError(t, err)

		_, err = svc.RenderPDF(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrRenderUnavailable)
	})
}

func TestSubmitStepValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
		step domain.AnsweredStep
	}{
		{"empty session id", "", step("q1", "x")},
		{"empty question id", id, step("", "x")},
		{"blank answer", id, step("q1", "  ")},
		{"unknown question", id, step("f9", "x")},
	}
	for _, tt := range tests {
		_, err := f.svc.SubmitStep(ctx, tt.id, tt.step)
		assert.ErrorIs(t, err, domain.ErrValidationFailed, tt.name)
	}
	assert.Empty(t, f.session(t, id).FormData)
}

func TestRefineWithoutPriorRound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))

	_, err := f.svc.GenerateRefinement(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Len(t, f.session(t, id).FormData, 1)
}

func TestAnsweringAfterCompleteReopens(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))
	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		return &domain.ModelRound{Note: "Draft"}, nil
	}
	_, err := f.svc.GenerateInitial(context.Background(), id)
	require.NoError(t, err)

	s, err := f.svc.SubmitStep(context.Background(), id, step("q2", "shellfish"))
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, s.State)
}

func TestModelError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))
	boom := errors.New("provider down")
	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		return nil, boom
	}

	_, err := f.svc.GenerateInitial(context.Background(), id)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.session(t, id).FormData, 1)
}

func TestModelTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, interview.WithModelTimeout(20*time.Millisecond))
	id := f.start(t, step("q1", "Italian"))
	f.gen.InitialFn = func(ctx context.Context, _ []domain.Turn) (*domain.ModelRound, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := f.svc.GenerateInitial(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.Len(t, f.session(t, id).FormData, 1)
}

func TestConcurrentRoundIsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		close(entered)
		<-release
		return &domain.ModelRound{Note: "Draft"}, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = f.svc.GenerateInitial(context.Background(), id)
	}()
	<-entered

	_, err := f.svc.GenerateInitial(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrRoundInProgress)

	// A step waits for the round instead of being lost.
	stepDone := make(chan error, 1)
	go func() {
		_, err := f.svc.SubmitStep(context.Background(), id, step("q2", "none"))
		stepDone <- err
	}()

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	require.NoError(t, <-stepDone)

	s := f.session(t, id)
	assert.Len(t, s.History, 1)
	assert.Equal(t, []domain.AnsweredStep{step("q2", "none")}, s.FormData)
	assert.Equal(t, domain.StateActive, s.State)
}

func TestSubmitStepHonoursContextWhileLocked(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		close(entered)
		<-release
		return &domain.ModelRound{Note: "Draft"}, nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.svc.GenerateInitial(context.Background(), id)
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.svc.SubmitStep(ctx, id, step("q2", "none"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}

func TestExpireNotifies(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.svc.Expire("gone")
	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventSessionExpired, events[0].Type)
	assert.Equal(t, "gone", events[0].SessionID)
}

func TestGetIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))

	a, err := f.svc.Session(context.Background(), id)
	require.NoError(t, err)
	b, err := f.svc.Session(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRoundReusingQuestionIDIsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	id := f.start(t, step("q1", "Italian"))
	before := f.session(t, id)

	f.gen.InitialFn = func(context.Context, []domain.Turn) (*domain.ModelRound, error) {
		return &domain.ModelRound{
			Note:      "Draft",
			Questions: []domain.Question{{ID: "q1", Text: "Cuisine again?"}},
		}, nil
	}
	_, err := f.svc.GenerateInitial(context.Background(), id)
	require.ErrorIs(t, err, domain.ErrModelResponseInvalid)

	after := f.session(t, id)
	assert.Equal(t, before.FormData, after.FormData)
	assert.Empty(t, after.History)
	assert.Nil(t, after.Summary)
}
