package assistant

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// fakeLayout keeps one in-memory config per page type.
type fakeLayout struct {
	configs   map[string]*types.SlotConfig
	published int
	mutateErr error
}

func newFakeLayout() *fakeLayout {
	return &fakeLayout{configs: map[string]*types.SlotConfig{
		"product": productPageConfig(),
	}}
}

func (f *fakeLayout) MutateDraft(ctx context.Context, storeID uuid.UUID, pageType string, fn func(cfg *types.SlotConfig) error) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	cfg, ok := f.configs[pageType]
	if !ok {
		cfg = &types.SlotConfig{Slots: map[string]*types.SlotNode{}}
		f.configs[pageType] = cfg
	}
	return fn(cfg)
}

func (f *fakeLayout) AvailableSlots(ctx context.Context, storeID uuid.UUID, pageType string) ([]string, error) {
	cfg, ok := f.configs[pageType]
	if !ok {
		return nil, nil
	}
	return slotIDs(cfg), nil
}

func (f *fakeLayout) Publish(ctx context.Context, storeID uuid.UUID, pageType string) (*types.SlotDocument, error) {
	f.published++
	return &types.SlotDocument{PageType: pageType, VersionNumber: f.published + 1}, nil
}

// fakeCatalog is an in-memory product/category store.
type fakeCatalog struct {
	products   []*types.Product
	categories map[string]*types.Category
	members    map[string]bool // productID|categoryID
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: []*types.Product{
			{ID: uuid.New(), Name: "Coffee Mug"},
			{ID: uuid.New(), Name: "Travel Mug"},
			{ID: uuid.New(), Name: "Beanie"},
		},
		categories: map[string]*types.Category{},
		members:    map[string]bool{},
	}
}

// FindProduct mirrors the service-side match rules: unique substring hit
// wins, exact match breaks ties, anything else is unresolved or ambiguous.
func (f *fakeCatalog) FindProduct(ctx context.Context, storeID uuid.UUID, name string) (*types.Product, error) {
	var hits []*types.Product
	for _, p := range f.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			hits = append(hits, p)
		}
	}
	switch len(hits) {
	case 0:
		return nil, &apierr.UnresolvedReference{Kind: "product", Term: name}
	case 1:
		return hits[0], nil
	}
	for _, p := range hits {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	candidates := make([]string, 0, len(hits))
	for _, p := range hits {
		candidates = append(candidates, p.Name)
	}
	return nil, &apierr.AmbiguousMatch{Kind: "product", Term: name, Candidates: candidates}
}

func (f *fakeCatalog) ListProducts(ctx context.Context, storeID uuid.UUID, filters repos.ProductFilters) ([]*types.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) FindCategory(ctx context.Context, storeID uuid.UUID, name string) (*types.Category, error) {
	return f.categories[strings.ToLower(name)], nil
}

func (f *fakeCatalog) CreateCategory(ctx context.Context, storeID uuid.UUID, name string) (*types.Category, error) {
	cat := &types.Category{ID: uuid.New(), Name: name}
	f.categories[strings.ToLower(name)] = cat
	return cat, nil
}

func (f *fakeCatalog) CategoryNames(ctx context.Context, storeID uuid.UUID) ([]string, error) {
	var names []string
	for _, c := range f.categories {
		names = append(names, c.Name)
	}
	return names, nil
}

func (f *fakeCatalog) AddToCategory(ctx context.Context, productID, categoryID uuid.UUID) (bool, error) {
	key := productID.String() + "|" + categoryID.String()
	if f.members[key] {
		return false, nil
	}
	f.members[key] = true
	return true, nil
}

func (f *fakeCatalog) RemoveFromCategory(ctx context.Context, productID, categoryID uuid.UUID) (bool, error) {
	key := productID.String() + "|" + categoryID.String()
	if !f.members[key] {
		return false, nil
	}
	delete(f.members, key)
	return true, nil
}

func testExecutor(layout LayoutStore, catalog Catalog) *Executor {
	return NewExecutor(testLogger(), layout, catalog)
}

func testExecContext() ExecContext {
	return ExecContext{
		StoreID:  uuid.New(),
		PageType: "product",
		Message:  "test message",
		Slots:    NewSlotResolver(testLogger(), nil),
		Styles:   NewStyleResolver(testLogger(), nil),
	}
}

func TestExecute_UpdateStyling(t *testing.T) {
	layout := newFakeLayout()
	exec := testExecutor(layout, newFakeCatalog())

	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolUpdateStyling,
		Args: map[string]any{"element": "the title", "property": "color", "value": "red"},
	})
	if !res.Success {
		t.Fatalf("update_styling failed: %s", res.Message)
	}
	node := layout.configs["product"].Slots["product_title"]
	if node.Styles["color"] != "#ef4444" {
		t.Errorf("style = %v, want color #ef4444", node.Styles)
	}
}

func TestExecute_UpdateStylingUnknownElement(t *testing.T) {
	exec := testExecutor(newFakeLayout(), newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolUpdateStyling,
		Args: map[string]any{"element": "hero banner", "property": "color", "value": "red"},
	})
	if res.Success {
		t.Fatal("unknown element succeeded")
	}
	if !strings.Contains(res.Message, "hero banner") {
		t.Errorf("message does not name the term: %s", res.Message)
	}
}

func TestExecute_UpdateStylingNotApplied(t *testing.T) {
	layout := newFakeLayout()
	exec := testExecutor(layout, newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolUpdateStyling,
		Args: map[string]any{"element": "title", "property": "vibe", "value": "premium"},
	})
	if res.Success {
		t.Fatal("vague styling request succeeded")
	}
	if styles := layout.configs["product"].Slots["product_title"].Styles; len(styles) != 0 {
		t.Errorf("styles written despite not-applied: %v", styles)
	}
}

func TestExecute_MoveElement(t *testing.T) {
	layout := newFakeLayout()
	exec := testExecutor(layout, newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolMoveElement,
		Args: map[string]any{"element": "sku", "position": "above", "target": "title"},
	})
	if !res.Success {
		t.Fatalf("move_element failed: %s", res.Message)
	}
	cfg := layout.configs["product"]
	if cfg.Slots["product_sku"].Position.Row != 1 || cfg.Slots["product_title"].Position.Row != 2 {
		t.Errorf("rows after move: sku=%v title=%v", cfg.Slots["product_sku"].Position.Row, cfg.Slots["product_title"].Position.Row)
	}
}

func TestExecute_AddToCategoryMissingCategoryAsksConfirmation(t *testing.T) {
	catalog := newFakeCatalog()
	exec := testExecutor(newFakeLayout(), catalog)
	ec := testExecContext()

	res := exec.Execute(context.Background(), ec, Intent{
		Tool: ToolAddToCategory,
		Args: map[string]any{"product": "Beanie", "category": "Winter"},
	})
	if res.Success {
		t.Fatal("missing category executed without confirmation")
	}
	if !res.NeedsConfirmation || res.PendingAction == nil {
		t.Fatalf("expected pending confirmation, got %+v", res)
	}
	if res.PendingAction.Tool != ToolCreateAndAdd {
		t.Errorf("pending tool = %s, want create_and_add", res.PendingAction.Tool)
	}
	if len(catalog.categories) != 0 {
		t.Errorf("category created without consent: %v", catalog.categories)
	}

	// Replaying the pending action creates and adds.
	replay := exec.Execute(context.Background(), ec, Intent{Tool: res.PendingAction.Tool, Args: res.PendingAction.Args})
	if !replay.Success {
		t.Fatalf("create_and_add failed: %s", replay.Message)
	}
	if catalog.categories["winter"] == nil {
		t.Fatal("category not created on replay")
	}
	if len(catalog.members) != 1 {
		t.Errorf("membership count = %d, want 1", len(catalog.members))
	}

	// A second replay is harmless.
	again := exec.Execute(context.Background(), ec, Intent{Tool: res.PendingAction.Tool, Args: res.PendingAction.Args})
	if !again.Success {
		t.Fatalf("second replay failed: %s", again.Message)
	}
	if len(catalog.members) != 1 {
		t.Errorf("membership count after replay = %d, want 1", len(catalog.members))
	}
}

func TestExecute_AddToCategoryIdempotent(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.CreateCategory(context.Background(), uuid.Nil, "Sale")
	exec := testExecutor(newFakeLayout(), catalog)
	ec := testExecContext()

	in := Intent{Tool: ToolAddToCategory, Args: map[string]any{"product": "Beanie", "category": "Sale"}}
	first := exec.Execute(context.Background(), ec, in)
	if !first.Success {
		t.Fatalf("first add failed: %s", first.Message)
	}
	second := exec.Execute(context.Background(), ec, in)
	if !second.Success {
		t.Fatalf("second add failed: %s", second.Message)
	}
	if !strings.Contains(second.Message, "already") {
		t.Errorf("second add message = %q, want already-a-member notice", second.Message)
	}
}

func TestExecute_AmbiguousProduct(t *testing.T) {
	exec := testExecutor(newFakeLayout(), newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolAddToCategory,
		Args: map[string]any{"product": "Mug", "category": "Sale"},
	})
	if res.Success {
		t.Fatal("ambiguous product succeeded")
	}
}

func TestExecute_RemoveFromCategoryNotMember(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.CreateCategory(context.Background(), uuid.Nil, "Sale")
	exec := testExecutor(newFakeLayout(), catalog)
	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolRemoveFromCategory,
		Args: map[string]any{"product": "Beanie", "category": "Sale"},
	})
	if !res.Success {
		t.Fatalf("remove failed: %s", res.Message)
	}
	if !strings.Contains(res.Message, "wasn't") {
		t.Errorf("message = %q, want not-a-member notice", res.Message)
	}
}

func TestExecute_CreateCategoryIdempotent(t *testing.T) {
	catalog := newFakeCatalog()
	exec := testExecutor(newFakeLayout(), catalog)
	ec := testExecContext()
	in := Intent{Tool: ToolCreateCategory, Args: map[string]any{"name": "Gifts"}}

	if res := exec.Execute(context.Background(), ec, in); !res.Success {
		t.Fatalf("create failed: %s", res.Message)
	}
	res := exec.Execute(context.Background(), ec, in)
	if !res.Success || !strings.Contains(res.Message, "already exists") {
		t.Fatalf("second create = %+v, want already-exists notice", res)
	}
	if len(catalog.categories) != 1 {
		t.Errorf("category count = %d, want 1", len(catalog.categories))
	}
}

func TestExecute_PublishLayout(t *testing.T) {
	layout := newFakeLayout()
	exec := testExecutor(layout, newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{Tool: ToolPublishLayout, Args: map[string]any{}})
	if !res.Success {
		t.Fatalf("publish failed: %s", res.Message)
	}
	if layout.published != 1 {
		t.Errorf("publish count = %d, want 1", layout.published)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	exec := testExecutor(newFakeLayout(), newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{Tool: "launch_rockets"})
	if res.Success {
		t.Fatal("unknown tool succeeded")
	}
}

func TestExecute_MissingArgsRejected(t *testing.T) {
	exec := testExecutor(newFakeLayout(), newFakeCatalog())
	res := exec.Execute(context.Background(), testExecContext(), Intent{Tool: ToolMoveElement, Args: map[string]any{"element": "sku"}})
	if res.Success {
		t.Fatal("missing args succeeded")
	}
}

func TestExecute_PanicIsContained(t *testing.T) {
	exec := testExecutor(nil, newFakeCatalog()) // nil layout panics inside the entry
	res := exec.Execute(context.Background(), testExecContext(), Intent{
		Tool: ToolPublishLayout,
		Args: map[string]any{},
	})
	if res.Success {
		t.Fatal("panicking entry reported success")
	}
	if !strings.Contains(res.Message, "Something went wrong") {
		t.Errorf("message = %q, want generic failure", res.Message)
	}
}
