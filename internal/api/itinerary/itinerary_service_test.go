package itinerary

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api/pipeline"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, it *types.Itinerary) error {
	return m.Called(ctx, it).Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id uuid.UUID) (*types.Itinerary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, it *types.Itinerary) error {
	return m.Called(ctx, it).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id, owner uuid.UUID) error {
	return m.Called(ctx, id, owner).Error(0)
}

func (m *MockRepository) Claim(ctx context.Context, id, owner uuid.UUID, now time.Time) (*types.Itinerary, error) {
	args := m.Called(ctx, id, owner, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*types.Itinerary, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.Itinerary), args.Error(1)
}

func (m *MockRepository) DeleteExpiredDrafts(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Run(ctx context.Context, prefs types.Preferences) (*types.Itinerary, error) {
	args := m.Called(ctx, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Itinerary), args.Error(1)
}

func (m *MockPlanner) Reorder(ctx context.Context, days []types.Day) []types.Day {
	return m.Called(ctx, days).Get(0).([]types.Day)
}

type staticRates map[string]float64

func (s staticRates) Rates(context.Context) map[string]float64 { return s }

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo Repository, planner Planner) *ServiceImpl {
	s := NewServiceImpl(repo, planner, staticRates{"USD": 1, "IDR": 16000}, Config{DraftTTL: 48 * time.Hour}, nil, testLogger())
	s.now = func() time.Time { return fixedNow }
	return s
}

func generated() *types.Itinerary {
	it := sampleItinerary(nil)
	it.Status = types.StatusDraft
	it.ExpiresAt = nil
	return it
}

func TestService_Generate(t *testing.T) {
	prefs := sampleItinerary(nil).Prefs

	t.Run("guest gets an expiring draft", func(t *testing.T) {
		repo, planner := new(MockRepository), new(MockPlanner)
		planner.On("Run", mock.Anything, prefs).Return(generated(), nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(it *types.Itinerary) bool {
			return it.UserID == nil && it.Status == types.StatusDraft &&
				it.ExpiresAt != nil && it.ExpiresAt.Equal(fixedNow.Add(48*time.Hour))
		})).Return(nil)

		it, err := newTestService(repo, planner).Generate(context.Background(), nil, prefs)
		require.NoError(t, err)
		assert.Equal(t, types.StatusDraft, it.Status)
		repo.AssertExpectations(t)
	})

	t.Run("signed-in user owns a saved itinerary", func(t *testing.T) {
		repo, planner := new(MockRepository), new(MockPlanner)
		owner := uuid.New()
		planner.On("Run", mock.Anything, prefs).Return(generated(), nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(it *types.Itinerary) bool {
			return it.OwnedBy(owner) && it.Status == types.StatusSaved && it.ExpiresAt == nil
		})).Return(nil)

		_, err := newTestService(repo, planner).Generate(context.Background(), &owner, prefs)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("pipeline failure is not stored", func(t *testing.T) {
		repo, planner := new(MockRepository), new(MockPlanner)
		planner.On("Run", mock.Anything, prefs).Return(nil, pipeline.ErrGeneration)

		_, err := newTestService(repo, planner).Generate(context.Background(), nil, prefs)
		assert.ErrorIs(t, err, pipeline.ErrGeneration)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("persistence failure surfaces", func(t *testing.T) {
		repo, planner := new(MockRepository), new(MockPlanner)
		planner.On("Run", mock.Anything, prefs).Return(generated(), nil)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		_, err := newTestService(repo, planner).Generate(context.Background(), nil, prefs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

func TestService_GetVisibility(t *testing.T) {
	owner, stranger := uuid.New(), uuid.New()
	private := sampleItinerary(&owner)
	public := sampleItinerary(&owner)
	public.IsPublic = true
	draft := sampleItinerary(nil)

	repo := new(MockRepository)
	repo.On("Get", mock.Anything, private.ID).Return(private, nil)
	repo.On("Get", mock.Anything, public.ID).Return(public, nil)
	repo.On("Get", mock.Anything, draft.ID).Return(draft, nil)
	s := newTestService(repo, new(MockPlanner))
	ctx := context.Background()

	_, err := s.Get(ctx, private.ID, &owner)
	assert.NoError(t, err)
	_, err = s.Get(ctx, private.ID, &stranger)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.Get(ctx, private.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.Get(ctx, public.ID, nil)
	assert.NoError(t, err)
	_, err = s.Get(ctx, draft.ID, nil)
	assert.NoError(t, err)
}

func TestService_Claim_AlreadyOwnedIsNoOp(t *testing.T) {
	repo := new(MockRepository)
	id, owner := uuid.New(), uuid.New()
	repo.On("Claim", mock.Anything, id, owner, fixedNow).Return(nil, ErrAlreadyClaimed)

	_, err := newTestService(repo, new(MockPlanner)).Claim(context.Background(), id, owner)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_Save(t *testing.T) {
	t.Run("unclaimed draft is claimed", func(t *testing.T) {
		repo := new(MockRepository)
		owner := uuid.New()
		draft := sampleItinerary(nil)
		claimed := sampleItinerary(&owner)
		repo.On("Get", mock.Anything, draft.ID).Return(draft, nil)
		repo.On("Claim", mock.Anything, draft.ID, owner, fixedNow).Return(claimed, nil)

		got, err := newTestService(repo, new(MockPlanner)).Save(context.Background(), draft.ID, owner)
		require.NoError(t, err)
		assert.True(t, got.OwnedBy(owner))
	})

	t.Run("owned draft is promoted", func(t *testing.T) {
		repo := new(MockRepository)
		owner := uuid.New()
		it := sampleItinerary(&owner)
		exp := fixedNow.Add(time.Hour)
		it.Status, it.ExpiresAt = types.StatusDraft, &exp
		repo.On("Get", mock.Anything, it.ID).Return(it, nil)
		repo.On("Update", mock.Anything, mock.MatchedBy(func(u *types.Itinerary) bool {
			return u.Status == types.StatusSaved && u.ExpiresAt == nil
		})).Return(nil)

		_, err := newTestService(repo, new(MockPlanner)).Save(context.Background(), it.ID, owner)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("someone else's itinerary", func(t *testing.T) {
		repo := new(MockRepository)
		owner := uuid.New()
		it := sampleItinerary(&owner)
		repo.On("Get", mock.Anything, it.ID).Return(it, nil)

		_, err := newTestService(repo, new(MockPlanner)).Save(context.Background(), it.ID, uuid.New())
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestService_DeleteRequiresOwner(t *testing.T) {
	repo := new(MockRepository)
	owner := uuid.New()
	it := sampleItinerary(&owner)
	repo.On("Get", mock.Anything, it.ID).Return(it, nil)
	repo.On("Delete", mock.Anything, it.ID, owner).Return(nil)
	s := newTestService(repo, new(MockPlanner))

	assert.ErrorIs(t, s.Delete(context.Background(), it.ID, uuid.New()), ErrForbidden)
	assert.NoError(t, s.Delete(context.Background(), it.ID, owner))
	repo.AssertNumberOfCalls(t, "Delete", 1)
}

func TestService_SetVisibility(t *testing.T) {
	repo := new(MockRepository)
	owner := uuid.New()
	it := sampleItinerary(&owner)
	repo.On("Get", mock.Anything, it.ID).Return(it, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(u *types.Itinerary) bool { return u.IsPublic })).Return(nil)

	got, err := newTestService(repo, new(MockPlanner)).SetVisibility(context.Background(), it.ID, owner, true)
	require.NoError(t, err)
	assert.True(t, got.IsPublic)
}

func TestService_UpdateDays(t *testing.T) {
	owner := uuid.New()
	edited := []types.Day{{Day: 1, Activities: []types.Activity{
		{Title: "Dinner at Bebek Kaleyo"},
		{Title: "Lunch at Sate Senayan"},
	}}}
	reordered := []types.Day{{Day: 1, Activities: []types.Activity{
		{Title: "Lunch at Sate Senayan", Type: types.KindMeal, MealType: types.MealLunch},
		{Title: "Dinner at Bebek Kaleyo", Type: types.KindMeal, MealType: types.MealDinner},
	}}}

	t.Run("owner edit is reordered and stored", func(t *testing.T) {
		repo, planner := new(MockRepository), new(MockPlanner)
		it := sampleItinerary(&owner)
		repo.On("Get", mock.Anything, it.ID).Return(it, nil)
		planner.On("Reorder", mock.Anything, edited).Return(reordered)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		got, err := newTestService(repo, planner).UpdateDays(context.Background(), it.ID, &owner, edited)
		require.NoError(t, err)
		assert.Equal(t, reordered, got.Days)
		assert.Equal(t, fixedNow, got.UpdatedAt)
	})

	t.Run("stranger cannot edit", func(t *testing.T) {
		repo := new(MockRepository)
		it := sampleItinerary(&owner)
		repo.On("Get", mock.Anything, it.ID).Return(it, nil)

		stranger := uuid.New()
		_, err := newTestService(repo, new(MockPlanner)).UpdateDays(context.Background(), it.ID, &stranger, edited)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("days must be numbered from one", func(t *testing.T) {
		_, err := newTestService(new(MockRepository), new(MockPlanner)).
			UpdateDays(context.Background(), uuid.New(), &owner, []types.Day{{Day: 2}})
		assert.ErrorIs(t, err, ErrInvalidDays)
	})
}

func TestService_Cost(t *testing.T) {
	repo := new(MockRepository)
	it := sampleItinerary(nil)
	it.Days[0].Activities = append(it.Days[0].Activities,
		types.Activity{Title: "Lunch at Sate Senayan", Type: types.KindMeal, Cost: "$12"})
	repo.On("Get", mock.Anything, it.ID).Return(it, nil)

	tc, err := newTestService(repo, new(MockPlanner)).Cost(context.Background(), it.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, tc.NumberOfTravelers)
	assert.Greater(t, tc.Total, 0.0)
}

func TestService_SweepExpiredDrafts(t *testing.T) {
	repo := new(MockRepository)
	repo.On("DeleteExpiredDrafts", mock.Anything, fixedNow).Return(int64(2), nil)

	n, err := newTestService(repo, new(MockPlanner)).SweepExpiredDrafts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestService_StartDraftSweeperStopsWithContext(t *testing.T) {
	repo := new(MockRepository)
	var calls atomic.Int32
	repo.On("DeleteExpiredDrafts", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { calls.Add(1) }).
		Return(int64(0), nil)
	s := newTestService(repo, new(MockPlanner))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.StartDraftSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func newMemoryRepository(t *testing.T, its ...*types.Itinerary) *MemoryRepository {
	t.Helper()
	m := NewMemoryRepository()
	for _, it := range its {
		require.NoError(t, m.Create(context.Background(), it))
	}
	return m
}

func TestService_ConcurrentClaimSucceedsOnce(t *testing.T) {
	draft := sampleItinerary(nil)
	repo := newMemoryRepository(t, draft)
	s := newTestService(repo, new(MockPlanner))

	const claimers = 8
	owners := make([]uuid.UUID, claimers)
	errs := make([]error, claimers)
	var wg sync.WaitGroup
	for i := range claimers {
		owners[i] = uuid.New()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Claim(context.Background(), draft.ID, owners[i])
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "only one claim may succeed")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyClaimed)
	}
	require.NotEqual(t, -1, winner)

	stored, err := repo.Get(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.True(t, stored.OwnedBy(owners[winner]))
	assert.Nil(t, stored.ExpiresAt)

	_, err = s.Claim(context.Background(), draft.ID, uuid.New())
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	again, _ := repo.Get(context.Background(), draft.ID)
	assert.Equal(t, stored, again, "a rejected claim leaves the itinerary unchanged")
}

func TestService_SweepKeepsClaimedItineraries(t *testing.T) {
	expired := fixedNow.Add(-time.Hour)
	stale := sampleItinerary(nil)
	stale.ExpiresAt = &expired
	fresh := sampleItinerary(nil)
	owner := uuid.New()
	saved := sampleItinerary(&owner)
	repo := newMemoryRepository(t, stale, fresh, saved)
	s := newTestService(repo, new(MockPlanner))

	n, err := s.SweepExpiredDrafts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(context.Background(), stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(context.Background(), fresh.ID)
	assert.NoError(t, err)
	_, err = repo.Get(context.Background(), saved.ID)
	assert.NoError(t, err)
}
