package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// fakeDocRepo is an in-memory SlotDocumentRepo. guardFailures makes the next
// N guarded writes lose their optimistic check.
type fakeDocRepo struct {
	docs          map[uuid.UUID]*types.SlotDocument
	guardFailures int
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[uuid.UUID]*types.SlotDocument{}}
}

func (f *fakeDocRepo) GetDraft(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	for _, d := range f.docs {
		if d.StoreID == storeID && d.PageType == pageType && d.Status == types.SlotStatusDraft {
			copy := *d
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDocRepo) GetActivePublished(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	for _, d := range f.docs {
		if d.StoreID == storeID && d.PageType == pageType && d.Status == types.SlotStatusPublished && d.IsActive {
			copy := *d
			return &copy, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeDocRepo) Create(ctx context.Context, tx *gorm.DB, doc *types.SlotDocument) (*types.SlotDocument, error) {
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	stored := *doc
	f.docs[doc.ID] = &stored
	return doc, nil
}

func (f *fakeDocRepo) UpdateGuarded(ctx context.Context, tx *gorm.DB, doc *types.SlotDocument, readAt time.Time) error {
	if f.guardFailures > 0 {
		f.guardFailures--
		return gorm.ErrRecordNotFound
	}
	stored, ok := f.docs[doc.ID]
	if !ok || !stored.UpdatedAt.Equal(readAt) {
		return gorm.ErrRecordNotFound
	}
	doc.UpdatedAt = time.Now().UTC().Add(time.Millisecond)
	updated := *doc
	f.docs[doc.ID] = &updated
	return nil
}

func (f *fakeDocRepo) Deactivate(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error {
	if d, ok := f.docs[docID]; ok {
		d.IsActive = false
	}
	return nil
}

func (f *fakeDocRepo) Delete(ctx context.Context, tx *gorm.DB, docID uuid.UUID) error {
	delete(f.docs, docID)
	return nil
}

func (f *fakeDocRepo) MaxVersionNumber(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, pageType string) (int, error) {
	max := 0
	for _, d := range f.docs {
		if d.StoreID == storeID && d.PageType == pageType && d.VersionNumber > max {
			max = d.VersionNumber
		}
	}
	return max, nil
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

func testLayoutService(t *testing.T, repo *fakeDocRepo) *LayoutService {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return NewLayoutService(testDB(t), repo, log)
}

func TestGetOrCreateDraft_SeedsDefault(t *testing.T) {
	repo := newFakeDocRepo()
	svc := testLayoutService(t, repo)
	storeID := uuid.New()

	draft, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.Equal(t, types.SlotStatusDraft, draft.Status)

	cfg, err := draft.Config()
	require.NoError(t, err)
	require.Contains(t, cfg.Slots, "product_title")
	require.Contains(t, cfg.Slots, "add_to_cart_button")

	// Second call returns the same draft instead of creating another.
	again, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.Equal(t, draft.ID, again.ID)
	require.Len(t, repo.docs, 1)
}

func TestGetOrCreateDraft_ClonesPublished(t *testing.T) {
	repo := newFakeDocRepo()
	svc := testLayoutService(t, repo)
	storeID := uuid.New()

	published := &types.SlotDocument{
		StoreID:       storeID,
		PageType:      "product",
		Status:        types.SlotStatusPublished,
		IsActive:      true,
		VersionNumber: 3,
	}
	require.NoError(t, published.SetConfig(&types.SlotConfig{Slots: map[string]*types.SlotNode{
		"custom_banner": {Position: types.Position{Row: 1, Col: 1}},
	}}))
	repo.Create(context.Background(), nil, published)

	draft, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	cfg, err := draft.Config()
	require.NoError(t, err)
	require.Contains(t, cfg.Slots, "custom_banner")
	require.NotNil(t, draft.ParentVersionID)
	require.Equal(t, published.ID, *draft.ParentVersionID)
}

func TestMutateDraft_AppliesAndMarksDirty(t *testing.T) {
	repo := newFakeDocRepo()
	svc := testLayoutService(t, repo)
	storeID := uuid.New()

	err := svc.MutateDraft(context.Background(), storeID, "product", func(cfg *types.SlotConfig) error {
		cfg.Slots["product_title"].Styles = map[string]string{"color": "#ef4444"}
		return nil
	})
	require.NoError(t, err)

	draft, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.True(t, draft.HasUnpublishedChanges)
	cfg, err := draft.Config()
	require.NoError(t, err)
	require.Equal(t, "#ef4444", cfg.Slots["product_title"].Styles["color"])
}

func TestMutateDraft_RetriesOnceThenConflicts(t *testing.T) {
	repo := newFakeDocRepo()
	svc := testLayoutService(t, repo)
	storeID := uuid.New()

	// One lost guard: the retry succeeds.
	_, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	repo.guardFailures = 1
	calls := 0
	err = svc.MutateDraft(context.Background(), storeID, "product", func(cfg *types.SlotConfig) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)

	// Two lost guards: the mutation surfaces a conflict.
	repo.guardFailures = 2
	err = svc.MutateDraft(context.Background(), storeID, "product", func(cfg *types.SlotConfig) error { return nil })
	require.ErrorIs(t, err, apierr.PersistenceConflict)
}

func TestMutateDraft_FnErrorAbortsWrite(t *testing.T) {
	repo := newFakeDocRepo()
	svc := testLayoutService(t, repo)
	storeID := uuid.New()

	wantErr := &apierr.UnresolvedReference{Kind: "element", Term: "hero"}
	err := svc.MutateDraft(context.Background(), storeID, "product", func(cfg *types.SlotConfig) error {
		return wantErr
	})
	require.ErrorAs(t, err, &wantErr)

	draft, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.False(t, draft.HasUnpublishedChanges)
}

func TestPublish_VersionsAndDeactivates(t *testing.T) {
	repo := newFakeDocRepo()
	svc := testLayoutService(t, repo)
	storeID := uuid.New()

	require.NoError(t, svc.MutateDraft(context.Background(), storeID, "product", func(cfg *types.SlotConfig) error {
		cfg.Slots["product_title"].Styles = map[string]string{"color": "#ef4444"}
		return nil
	}))

	first, err := svc.Publish(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.True(t, first.IsActive)
	require.Equal(t, types.SlotStatusPublished, first.Status)

	require.NoError(t, svc.MutateDraft(context.Background(), storeID, "product", func(cfg *types.SlotConfig) error {
		cfg.Slots["product_title"].Styles["color"] = "#3b82f6"
		return nil
	}))
	second, err := svc.Publish(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.Greater(t, second.VersionNumber, first.VersionNumber)

	// Only the newest published version stays active.
	require.False(t, repo.docs[first.ID].IsActive)
	require.True(t, repo.docs[second.ID].IsActive)

	draft, err := svc.GetOrCreateDraft(context.Background(), storeID, "product")
	require.NoError(t, err)
	require.False(t, draft.HasUnpublishedChanges)
}

func TestPublish_NoDraft(t *testing.T) {
	svc := testLayoutService(t, newFakeDocRepo())
	_, err := svc.Publish(context.Background(), uuid.New(), "product")
	require.Error(t, err)
}

func TestAvailableSlots_Sorted(t *testing.T) {
	svc := testLayoutService(t, newFakeDocRepo())
	slots, err := svc.AvailableSlots(context.Background(), uuid.New(), "product")
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	for i := 1; i < len(slots); i++ {
		require.Less(t, slots[i-1], slots[i])
	}
}
