package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/apierr"
	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/repos"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// Canonical tool names of the executor dispatch table.
const (
	ToolUpdateStyling      = "update_styling"
	ToolMoveElement        = "move_element"
	ToolListProducts       = "list_products"
	ToolAddToCategory      = "add_to_category"
	ToolRemoveFromCategory = "remove_from_category"
	ToolCreateCategory     = "create_category"
	ToolCreateAndAdd       = "create_and_add"
	ToolPublishLayout      = "publish_layout"
	ToolAskConfirmation    = "ask_confirmation"
	ToolChat               = "chat"
)

// ExecResult is the outcome of one tool execution.
type ExecResult struct {
	Success           bool                 `json:"success"`
	Message           string               `json:"message"`
	Data              any                  `json:"data,omitempty"`
	NeedsConfirmation bool                 `json:"needs_confirmation,omitempty"`
	PendingAction     *types.PendingAction `json:"pending_action,omitempty"`
}

// LayoutStore is the slot-document boundary the executor mutates through.
type LayoutStore interface {
	// MutateDraft runs fn against the store's draft document for pageType and
	// persists the result. fn returning an error aborts without writing.
	MutateDraft(ctx context.Context, storeID uuid.UUID, pageType string, fn func(cfg *types.SlotConfig) error) error
	AvailableSlots(ctx context.Context, storeID uuid.UUID, pageType string) ([]string, error)
	Publish(ctx context.Context, storeID uuid.UUID, pageType string) (*types.SlotDocument, error)
}

// Catalog is the tenant catalog boundary used by the category/product tools.
type Catalog interface {
	FindProduct(ctx context.Context, storeID uuid.UUID, name string) (*types.Product, error)
	ListProducts(ctx context.Context, storeID uuid.UUID, f repos.ProductFilters) ([]*types.Product, error)
	FindCategory(ctx context.Context, storeID uuid.UUID, name string) (*types.Category, error)
	CreateCategory(ctx context.Context, storeID uuid.UUID, name string) (*types.Category, error)
	CategoryNames(ctx context.Context, storeID uuid.UUID) ([]string, error)
	AddToCategory(ctx context.Context, productID, categoryID uuid.UUID) (bool, error)
	RemoveFromCategory(ctx context.Context, productID, categoryID uuid.UUID) (bool, error)
}

// ExecContext carries the per-request state a tool entry needs: tenant, page,
// the originating message, and the request-scoped resolvers.
type ExecContext struct {
	StoreID  uuid.UUID
	PageType string
	Message  string
	Slots    *SlotResolver
	Styles   *StyleResolver
}

type entryFunc func(ctx context.Context, ec ExecContext, in Intent) ExecResult

type Executor struct {
	log     *logger.Logger
	layout  LayoutStore
	catalog Catalog
	entries map[string]entryFunc
}

func NewExecutor(log *logger.Logger, layout LayoutStore, catalog Catalog) *Executor {
	e := &Executor{
		log:     log.With("component", "Executor"),
		layout:  layout,
		catalog: catalog,
	}
	e.entries = map[string]entryFunc{
		ToolUpdateStyling:      e.updateStyling,
		ToolMoveElement:        e.moveElement,
		ToolListProducts:       e.listProducts,
		ToolAddToCategory:      e.addToCategory,
		ToolRemoveFromCategory: e.removeFromCategory,
		ToolCreateCategory:     e.createCategory,
		ToolCreateAndAdd:       e.createAndAdd,
		ToolPublishLayout:      e.publishLayout,
	}
	return e
}

func (e *Executor) Supports(tool string) bool {
	_, ok := e.entries[tool]
	return ok
}

// Execute dispatches one intent. Any error or panic inside an entry is
// converted into a failed result at this boundary so one failing tool never
// aborts its siblings in a batch.
func (e *Executor) Execute(ctx context.Context, ec ExecContext, in Intent) (res ExecResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("tool execution panicked", "tool", in.Tool, "panic", fmt.Sprint(r))
			res = ExecResult{Success: false, Message: fmt.Sprintf("Something went wrong: %v", r)}
		}
	}()

	entry, ok := e.entries[strings.ToLower(strings.TrimSpace(in.Tool))]
	if !ok {
		return ExecResult{Success: false, Message: fmt.Sprintf("I don't know how to do %q yet.", in.Tool)}
	}
	if err := ValidateIntent(in); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	return entry(ctx, ec, in)
}

// errNotApplied aborts a draft mutation without treating it as a hard error.
var errNotApplied = errors.New("style not applied")

func (e *Executor) updateStyling(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args UpdateStylingArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	pageType := pageOrDefault(args.Page, ec.PageType)

	var applied StyleResolution
	var slotID string
	err := e.layout.MutateDraft(ctx, ec.StoreID, pageType, func(cfg *types.SlotConfig) error {
		available := slotIDs(cfg)
		id, ok := ec.Slots.Resolve(ctx, args.Element, pageType, available)
		if !ok {
			return &apierr.UnresolvedReference{Kind: "element", Term: args.Element, Suggestions: nearestSlots(args.Element, available, 3)}
		}
		slotID = id
		node := cfg.Slots[id]
		current := ""
		if node.Styles != nil {
			current = node.Styles[normalizeProperty(args.Property)]
		}
		applied = ec.Styles.ResolveStyle(ctx, args.Property, args.Value, id, current)
		if !applied.Applied {
			return errNotApplied
		}
		if node.Styles == nil {
			node.Styles = map[string]string{}
		}
		node.Styles[applied.Property] = applied.Value
		return nil
	})
	if errors.Is(err, errNotApplied) {
		return ExecResult{Success: false, Message: fmt.Sprintf("I couldn't turn %q into a concrete style, so nothing was applied.", args.Value)}
	}
	if err != nil {
		return failureFrom(err)
	}
	return ExecResult{
		Success: true,
		Message: fmt.Sprintf("Updated %s of %s to %s.", applied.Property, slotID, applied.Value),
		Data:    map[string]any{"element": slotID, "property": applied.Property, "value": applied.Value, "page": pageType},
	}
}

func (e *Executor) moveElement(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args MoveElementArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	pageType := pageOrDefault(args.Page, ec.PageType)
	pos := NormalizePosition(args.Position)

	var src, tgt string
	err := e.layout.MutateDraft(ctx, ec.StoreID, pageType, func(cfg *types.SlotConfig) error {
		available := slotIDs(cfg)
		id, ok := ec.Slots.Resolve(ctx, args.Element, pageType, available)
		if !ok {
			return &apierr.UnresolvedReference{Kind: "element", Term: args.Element, Suggestions: nearestSlots(args.Element, available, 3)}
		}
		src = id
		id, ok = ec.Slots.Resolve(ctx, args.Target, pageType, available)
		if !ok {
			return &apierr.UnresolvedReference{Kind: "element", Term: args.Target, Suggestions: nearestSlots(args.Target, available, 3)}
		}
		tgt = id
		return Move(cfg, src, tgt, pos)
	})
	if err != nil {
		return failureFrom(err)
	}
	word := "below"
	if pos == PosBefore {
		word = "above"
	}
	return ExecResult{
		Success: true,
		Message: fmt.Sprintf("Moved %s %s %s.", src, word, tgt),
		Data:    map[string]any{"element": src, "target": tgt, "position": string(pos), "page": pageType},
	}
}

func (e *Executor) listProducts(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args ListProductsArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	filters := repos.ProductFilters{}
	if f := args.Filters; f != nil {
		filters = repos.ProductFilters{
			InStock:    f.InStock,
			OutOfStock: f.OutOfStock,
			LowStock:   f.LowStock,
			Featured:   f.Featured,
			OnSale:     f.OnSale,
			Category:   f.Category,
			PriceMin:   f.PriceMin,
			PriceMax:   f.PriceMax,
			SortBy:     f.SortBy,
			Limit:      f.Limit,
		}
	}
	products, err := e.catalog.ListProducts(ctx, ec.StoreID, filters)
	if err != nil {
		return failureFrom(err)
	}
	if len(products) == 0 {
		return ExecResult{Success: true, Message: "No products match those filters.", Data: []*types.Product{}}
	}
	return ExecResult{
		Success: true,
		Message: fmt.Sprintf("Found %d product(s).", len(products)),
		Data:    products,
	}
}

func (e *Executor) addToCategory(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args CategoryMembershipArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	product, err := e.catalog.FindProduct(ctx, ec.StoreID, args.Product)
	if err != nil {
		return failureFrom(err)
	}
	category, err := e.catalog.FindCategory(ctx, ec.StoreID, args.Category)
	if err != nil {
		return failureFrom(err)
	}
	if category == nil {
		// Creating a category the user never named explicitly is not ours to
		// decide; hand back a pending action instead.
		return ExecResult{
			Success:           false,
			Message:           fmt.Sprintf("There is no category called %q. Should I create it and add %s?", args.Category, product.Name),
			NeedsConfirmation: true,
			PendingAction: &types.PendingAction{
				Tool:          ToolCreateAndAdd,
				Args:          map[string]any{"product": args.Product, "category": args.Category},
				Question:      fmt.Sprintf("Create category %q and add %s to it?", args.Category, product.Name),
				SourceMessage: ec.Message,
				CreatedAt:     time.Now().UTC(),
			},
		}
	}
	added, err := e.catalog.AddToCategory(ctx, product.ID, category.ID)
	if err != nil {
		return failureFrom(err)
	}
	if !added {
		return ExecResult{Success: true, Message: fmt.Sprintf("%s is already in %s.", product.Name, category.Name)}
	}
	return ExecResult{Success: true, Message: fmt.Sprintf("Added %s to %s.", product.Name, category.Name)}
}

func (e *Executor) removeFromCategory(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args CategoryMembershipArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	product, err := e.catalog.FindProduct(ctx, ec.StoreID, args.Product)
	if err != nil {
		return failureFrom(err)
	}
	category, err := e.catalog.FindCategory(ctx, ec.StoreID, args.Category)
	if err != nil {
		return failureFrom(err)
	}
	if category == nil {
		names, _ := e.catalog.CategoryNames(ctx, ec.StoreID)
		return failureFrom(&apierr.UnresolvedReference{Kind: "category", Term: args.Category, Suggestions: nearestNames(args.Category, names, 3)})
	}
	removed, err := e.catalog.RemoveFromCategory(ctx, product.ID, category.ID)
	if err != nil {
		return failureFrom(err)
	}
	if !removed {
		return ExecResult{Success: true, Message: fmt.Sprintf("%s wasn't in %s.", product.Name, category.Name)}
	}
	return ExecResult{Success: true, Message: fmt.Sprintf("Removed %s from %s.", product.Name, category.Name)}
}

func (e *Executor) createCategory(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args CreateCategoryArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	existing, err := e.catalog.FindCategory(ctx, ec.StoreID, args.Name)
	if err != nil {
		return failureFrom(err)
	}
	if existing != nil {
		return ExecResult{Success: true, Message: fmt.Sprintf("Category %q already exists.", existing.Name), Data: existing}
	}
	category, err := e.catalog.CreateCategory(ctx, ec.StoreID, args.Name)
	if err != nil {
		return failureFrom(err)
	}
	return ExecResult{Success: true, Message: fmt.Sprintf("Created category %q.", category.Name), Data: category}
}

// createAndAdd is the replay target of the add_to_category confirmation. Both
// steps are idempotent so a repeated "yes" cannot duplicate anything.
func (e *Executor) createAndAdd(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args CategoryMembershipArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	product, err := e.catalog.FindProduct(ctx, ec.StoreID, args.Product)
	if err != nil {
		return failureFrom(err)
	}
	category, err := e.catalog.FindCategory(ctx, ec.StoreID, args.Category)
	if err != nil {
		return failureFrom(err)
	}
	if category == nil {
		category, err = e.catalog.CreateCategory(ctx, ec.StoreID, args.Category)
		if err != nil {
			return failureFrom(err)
		}
	}
	added, err := e.catalog.AddToCategory(ctx, product.ID, category.ID)
	if err != nil {
		return failureFrom(err)
	}
	if !added {
		return ExecResult{Success: true, Message: fmt.Sprintf("%s is already in %s.", product.Name, category.Name)}
	}
	return ExecResult{Success: true, Message: fmt.Sprintf("Created %s and added %s.", category.Name, product.Name)}
}

func (e *Executor) publishLayout(ctx context.Context, ec ExecContext, in Intent) ExecResult {
	var args PublishLayoutArgs
	if err := decodeArgs(in.Args, &args); err != nil {
		return ExecResult{Success: false, Message: err.Error()}
	}
	pageType := pageOrDefault(args.Page, ec.PageType)
	doc, err := e.layout.Publish(ctx, ec.StoreID, pageType)
	if err != nil {
		return failureFrom(err)
	}
	return ExecResult{
		Success: true,
		Message: fmt.Sprintf("Published the %s page (version %d).", pageType, doc.VersionNumber),
		Data:    map[string]any{"page": pageType, "version": doc.VersionNumber},
	}
}

// failureFrom converts taxonomy errors into user-facing results; anything
// unexpected becomes the generic failure message.
func failureFrom(err error) ExecResult {
	var unresolved *apierr.UnresolvedReference
	if errors.As(err, &unresolved) {
		return ExecResult{Success: false, Message: unresolved.Error()}
	}
	var ambiguous *apierr.AmbiguousMatch
	if errors.As(err, &ambiguous) {
		return ExecResult{
			Success: false,
			Message: fmt.Sprintf("Which one did you mean? %s", strings.Join(ambiguous.Candidates, ", ")),
			Data:    map[string]any{"candidates": ambiguous.Candidates},
		}
	}
	if errors.Is(err, apierr.PersistenceConflict) {
		return ExecResult{Success: false, Message: "The layout changed while I was editing it. Please try again."}
	}
	return ExecResult{Success: false, Message: fmt.Sprintf("Something went wrong: %v", err)}
}

func pageOrDefault(page, fallback string) string {
	page = strings.TrimSpace(page)
	if page != "" {
		return page
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return "product"
}

// nearestNames ranks arbitrary names by edit distance to the term.
func nearestNames(term string, names []string, k int) []string {
	return nearestSlots(term, names, k)
}
