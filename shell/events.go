package shell

import (
	"context"
	"errors"
	"fmt"

	"vogue/models"

	"go.uber.org/zap"
)

var (
	// ErrRejected is returned when a store declined the action; the user has
	// already been told why.
	ErrRejected = errors.New("shell: action rejected")
	ErrUnknown  = errors.New("shell: unknown event")
)

// Event is a user action routed through Dispatch.
type Event interface {
	Name() string
}

type (
	AddToCart struct {
		ProductID string
		Quantity  int
		Options   map[string]string
	}
	// UpdateQuantity carries the raw input value of the quantity field.
	UpdateQuantity struct {
		ItemID string
		Raw    string
	}
	ChangeQuantity struct {
		ItemID string
		Delta  int
	}
	RemoveItem struct{ ItemID string }
	ClearCart  struct{}

	SetFilter struct {
		Filter string
		Values []string
	}

	Search       struct{ Query string }
	ToggleFilter struct{ Filter, Value string }
	PriceRange   struct{ Min, Max float64 }
	Sort         struct{ Key string }
	GoToPage     struct{ Page int }
	ResetFilters struct{}
	Reorder      struct{ IDs []string }

	ToggleWishlist struct{ ProductID string }
	ToggleCompare  struct{ ProductID string }

	Online     struct{}
	Offline    struct{}
	Visibility struct{ Hidden bool }

	Navigate   struct{ URL string }
	SubmitForm struct{ Form Form }
	Login      struct{ Credentials models.Credentials }
	Logout     struct{}
)

func (AddToCart) Name() string      { return "add_to_cart" }
func (UpdateQuantity) Name() string { return "update_quantity" }
func (ChangeQuantity) Name() string { return "change_quantity" }
func (RemoveItem) Name() string     { return "remove_from_cart" }
func (ClearCart) Name() string      { return "clear_cart" }
func (Search) Name() string         { return "search" }
func (SetFilter) Name() string      { return "set_filter" }
func (ToggleFilter) Name() string   { return "toggle_filter" }
func (PriceRange) Name() string     { return "price_range" }
func (Sort) Name() string           { return "sort" }
func (GoToPage) Name() string       { return "page" }
func (ResetFilters) Name() string   { return "reset_filters" }
func (Reorder) Name() string        { return "reorder" }
func (ToggleWishlist) Name() string { return "wishlist" }
func (ToggleCompare) Name() string  { return "compare" }
func (Online) Name() string         { return "online" }
func (Offline) Name() string        { return "offline" }
func (Visibility) Name() string     { return "visibility" }
func (Navigate) Name() string       { return "navigate" }
func (SubmitForm) Name() string     { return "form_submit" }
func (Login) Name() string          { return "login" }
func (Logout) Name() string         { return "logout" }

// Dispatch applies ev to the owning store. It counts an interaction for every
// event; store refusals come back as ErrRejected.
func (s *Shell) Dispatch(ctx context.Context, ev Event) error {
	s.Analytics.Interact()
	s.log.Debug("dispatch", zap.String("event", ev.Name()))

	switch e := ev.(type) {
	case AddToCart:
		ok := s.Cart.AddItem(ctx, e.ProductID, e.Quantity, e.Options)
		if ok {
			s.Analytics.Track(ctx, ev.Name(), map[string]any{"product_id": e.ProductID, "quantity": e.Quantity})
		}
		return rejected(ok)
	case UpdateQuantity:
		return rejected(s.Cart.UpdateQuantityInput(ctx, e.ItemID, e.Raw))
	case ChangeQuantity:
		return rejected(s.Cart.ChangeQuantity(ctx, e.ItemID, e.Delta))
	case RemoveItem:
		return rejected(s.Cart.RemoveItem(ctx, e.ItemID))
	case ClearCart:
		return rejected(s.Cart.ClearCart(ctx))

	case Search:
		s.Catalog.SearchProducts(ctx, e.Query)
		return nil
	case SetFilter:
		return s.filterError(s.Catalog.SetFilter(ctx, e.Filter, e.Values...))
	case ToggleFilter:
		return s.filterError(s.Catalog.ToggleFilter(ctx, e.Filter, e.Value))
	case PriceRange:
		s.Catalog.SetPriceRange(ctx, e.Min, e.Max)
		return nil
	case Sort:
		return s.filterError(s.Catalog.SetFilter(ctx, "sort", e.Key))
	case GoToPage:
		return rejected(s.Catalog.GoToPage(e.Page))
	case ResetFilters:
		s.Catalog.ResetFilters(ctx)
		return nil
	case Reorder:
		s.Catalog.Reorder(ctx, e.IDs)
		return nil
	case ToggleWishlist:
		s.Catalog.ToggleWishlist(ctx, e.ProductID)
		return nil
	case ToggleCompare:
		s.Catalog.ToggleCompare(ctx, e.ProductID)
		return nil

	case Online:
		s.GoOnline(ctx)
		return nil
	case Offline:
		s.GoOffline()
		return nil
	case Visibility:
		s.SetHidden(e.Hidden)
		return nil

	case Navigate:
		s.Navigate(ctx, e.URL)
		return nil
	case SubmitForm:
		_, err := s.SubmitForm(ctx, e.Form)
		return err
	case Login:
		res := s.Auth.Login(ctx, e.Credentials)
		if !res.Success {
			s.Notify.Show(res.Error, models.KindError)
			return ErrRejected
		}
		s.Analytics.SetUser(res.User)
		s.loadLists(ctx)
		s.Notify.Show("Добро пожаловать!", models.KindSuccess)
		return nil
	case Logout:
		res := s.Auth.Logout(ctx)
		if !res.Success {
			s.Notify.Show(res.Error, models.KindError)
			return ErrRejected
		}
		s.Analytics.SetUser(nil)
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnknown, ev)
}

// SetHidden records the page going to the background or coming back.
func (s *Shell) SetHidden(hidden bool) {
	if hidden {
		s.Analytics.Hidden()
		s.emit(EventPageHidden, nil)
		return
	}
	s.Analytics.Visible()
	s.emit(EventPageVisible, nil)
}

func (s *Shell) filterError(err error) error {
	if err != nil {
		s.log.Debug("filter rejected", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	return nil
}

func rejected(ok bool) error {
	if ok {
		return nil
	}
	return ErrRejected
}
