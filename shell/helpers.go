package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vogue/catalog"
	"vogue/localstore"
	"vogue/models"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const exportVersion = "1.0.0"

// FormatPrice renders amount with two decimals in the configured language,
// followed by the currency symbol.
func (s *Shell) FormatPrice(amount float64) string {
	cfg := s.Config()
	return FormatPrice(amount, cfg.Language, cfg.CurrencySymbol)
}

func FormatPrice(amount float64, lang, symbol string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Russian
	}
	p := message.NewPrinter(tag)
	out := p.Sprint(number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if symbol == "" {
		return out
	}
	return out + " " + symbol
}

// PluralForm picks the Russian noun form for n: one (1, 21), few (2-4, 22)
// or many (0, 5-20, 25).
func PluralForm(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	switch plural.Cardinal.MatchPlural(language.Russian, n, 0, 0, 0, 0) {
	case plural.One:
		return one
	case plural.Few:
		return few
	}
	return many
}

// ErrBadExport is returned by ImportData for documents this app didn't write.
var ErrBadExport = errors.New("shell: not a storefront export")

type exportDoc struct {
	App        string          `json:"app"`
	Version    string          `json:"version"`
	ExportDate time.Time       `json:"exportDate"`
	Data       json.RawMessage `json:"data"`
}

type exportData struct {
	Cart        []models.CartItem `json:"cart,omitempty"`
	Wishlist    []string          `json:"wishlist,omitempty"`
	Compare     []string          `json:"compare,omitempty"`
	Preferences map[string]any    `json:"preferences,omitempty"`
	Session     *models.Session   `json:"session,omitempty"`
}

// ExportData serializes the kind of data asked for: cart, wishlist,
// preferences or all.
func (s *Shell) ExportData(kind string) ([]byte, error) {
	var d exportData
	switch kind {
	case "cart":
		d.Cart = s.Cart.Items()
	case "wishlist":
		d.Wishlist = s.Catalog.WishlistIDs()
	case "preferences":
		d.Preferences = s.Preferences()
	case "all", "":
		sess := s.Analytics.Session()
		d = exportData{
			Cart:        s.Cart.Items(),
			Wishlist:    s.Catalog.WishlistIDs(),
			Compare:     s.Catalog.CompareIDs(),
			Preferences: s.Preferences(),
			Session:     &sess,
		}
	default:
		return nil, fmt.Errorf("shell: unknown export %q", kind)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	out, err := json.MarshalIndent(exportDoc{
		App:        s.Config().SiteName,
		Version:    exportVersion,
		ExportDate: s.now().UTC(),
		Data:       raw,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	s.Notify.Show("Данные экспортированы", models.KindSuccess)
	return out, nil
}

// ImportData applies an ExportData document.
func (s *Shell) ImportData(ctx context.Context, data []byte) error {
	var doc exportDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.App != s.Config().SiteName {
		s.Notify.Show("Ошибка импорта данных", models.KindError)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadExport, err)
		}
		return ErrBadExport
	}
	var d exportData
	if len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, &d); err != nil {
			s.Notify.Show("Ошибка импорта данных", models.KindError)
			return fmt.Errorf("%w: %w", ErrBadExport, err)
		}
	}
	if d.Cart != nil {
		s.Cart.Replace(ctx, d.Cart)
	}
	if d.Wishlist != nil {
		s.Catalog.SetList(ctx, catalog.Wishlist, d.Wishlist)
	}
	if d.Compare != nil {
		s.Catalog.SetList(ctx, catalog.Compare, d.Compare)
	}
	for k, v := range d.Preferences {
		if err := s.SetPreference(ctx, k, v); err != nil {
			return err
		}
	}
	s.Notify.Show("Данные импортированы", models.KindSuccess)
	return nil
}

// ClearCache wipes the session's local storage and reloads the stores from
// the now empty state.
func (s *Shell) ClearCache(ctx context.Context) error {
	if err := localstore.Clear(ctx, s.storage, ""); err != nil {
		s.Notify.Show("Ошибка очистки кэша", models.KindError)
		return fmt.Errorf("clear local storage: %w", err)
	}
	s.mu.Lock()
	s.prefs = map[string]any{}
	s.mu.Unlock()
	s.Cart.Reload(ctx)
	s.Catalog.LoadLists(ctx)
	s.Catalog.RestoreState(ctx)
	s.Notify.Show("Кэш очищен", models.KindSuccess)
	return nil
}
