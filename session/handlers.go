package session

import (
	"errors"
	"net/http"
	"strconv"

	"vogue/models"
	"vogue/notify"
	"vogue/shell"
	"vogue/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// cartView is the cart as the session API returns it.
type cartView struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
	Formatted  string            `json:"formatted_total"`
	Label      string            `json:"label"`
}

func viewCart(sh *shell.Shell) cartView {
	snap := sh.Cart.Snapshot()
	if snap.Items == nil {
		snap.Items = []models.CartItem{}
	}
	return cartView{
		Items:      snap.Items,
		TotalItems: snap.TotalItems,
		TotalPrice: snap.TotalPrice,
		Formatted:  sh.FormatPrice(snap.TotalPrice),
		Label:      strconv.Itoa(snap.TotalItems) + " " + shell.PluralForm(snap.TotalItems, "товар", "товара", "товаров"),
	}
}

// handle resolves the session and runs fn with it.
func (m *Manager) handle(fn func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, sh *shell.Shell)) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sh, err := m.Shell(w, r)
		if err != nil {
			m.log.Error("session unavailable", zap.Error(err))
			http.Error(w, "Session unavailable", http.StatusServiceUnavailable)
			return
		}
		fn(w, r, ps, sh)
	}
}

// respond writes the outcome of a dispatched event: the rejection message the
// user was shown, or view on success.
func (m *Manager) respond(w http.ResponseWriter, sh *shell.Shell, err error, view func() any) {
	switch {
	case err == nil:
		utils.RespondWithJSON(w, http.StatusOK, view())
	case errors.Is(err, shell.ErrRejected):
		utils.RespondWithError(w, http.StatusConflict, lastMessage(sh))
	case errors.Is(err, shell.ErrQueued):
		utils.RespondWithJSON(w, http.StatusAccepted, map[string]any{"queued": true})
	case errors.Is(err, shell.ErrUnknown):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		m.log.Error("session action failed", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadGateway, lastMessage(sh))
	}
}

func lastMessage(sh *shell.Shell) string {
	active := sh.Notify.Active()
	if len(active) == 0 {
		return "Действие отклонено"
	}
	return active[len(active)-1].Message
}

func (m *Manager) GetCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		utils.RespondWithJSON(w, http.StatusOK, viewCart(sh))
	})(w, r, ps)
}

type addItemRequest struct {
	ProductID string            `json:"product_id"`
	Quantity  int               `json:"quantity"`
	Options   map[string]string `json:"options"`
}

func (m *Manager) AddItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		var in addItemRequest
		if err := utils.DecodeJSON(w, r, &in); err != nil || in.ProductID == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if in.Quantity == 0 {
			in.Quantity = 1
		}
		err := sh.Dispatch(r.Context(), shell.AddToCart{ProductID: in.ProductID, Quantity: in.Quantity, Options: in.Options})
		m.respond(w, sh, err, func() any { return viewCart(sh) })
	})(w, r, ps)
}

type updateItemRequest struct {
	// Quantity is the raw value of the quantity input.
	Quantity *string `json:"quantity,omitempty"`
	Delta    int     `json:"delta,omitempty"`
}

func (m *Manager) UpdateItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, sh *shell.Shell) {
		var in updateItemRequest
		if err := utils.DecodeJSON(w, r, &in); err != nil || (in.Quantity == nil && in.Delta == 0) {
			utils.RespondWithError(w, http.StatusBadRequest, "quantity or delta required")
			return
		}
		var ev shell.Event = shell.ChangeQuantity{ItemID: ps.ByName("id"), Delta: in.Delta}
		if in.Quantity != nil {
			ev = shell.UpdateQuantity{ItemID: ps.ByName("id"), Raw: *in.Quantity}
		}
		err := sh.Dispatch(r.Context(), ev)
		m.respond(w, sh, err, func() any { return viewCart(sh) })
	})(w, r, ps)
}

func (m *Manager) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, sh *shell.Shell) {
		err := sh.Dispatch(r.Context(), shell.RemoveItem{ItemID: ps.ByName("id")})
		m.respond(w, sh, err, func() any { return viewCart(sh) })
	})(w, r, ps)
}

// ClearCart needs ?confirm=true, standing in for the confirmation dialog.
func (m *Manager) ClearCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		yes, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		err := sh.Dispatch(WithConfirm(r.Context(), yes), shell.ClearCart{})
		m.respond(w, sh, err, func() any { return viewCart(sh) })
	})(w, r, ps)
}

func (m *Manager) GetCatalog(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		utils.RespondWithJSON(w, http.StatusOK, sh.Catalog.Snapshot())
	})(w, r, ps)
}

// filterRequest carries one catalog change; the first field set wins.
type filterRequest struct {
	Search *string            `json:"search,omitempty"`
	Page   int                `json:"page,omitempty"`
	Price  *models.PriceRange `json:"price,omitempty"`
	Filter string             `json:"filter,omitempty"`
	Values []string           `json:"values,omitempty"`
	Toggle string             `json:"toggle,omitempty"`
}

func (in filterRequest) event() shell.Event {
	switch {
	case in.Search != nil:
		return shell.Search{Query: *in.Search}
	case in.Page > 0:
		return shell.GoToPage{Page: in.Page}
	case in.Price != nil:
		return shell.PriceRange{Min: in.Price.Min, Max: in.Price.Max}
	case in.Filter != "" && in.Toggle != "":
		return shell.ToggleFilter{Filter: in.Filter, Value: in.Toggle}
	case in.Filter != "":
		return shell.SetFilter{Filter: in.Filter, Values: in.Values}
	}
	return nil
}

func (m *Manager) SetFilters(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		var in filterRequest
		if err := utils.DecodeJSON(w, r, &in); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		ev := in.event()
		if ev == nil {
			utils.RespondWithError(w, http.StatusBadRequest, "nothing to change")
			return
		}
		err := sh.Dispatch(r.Context(), ev)
		m.respond(w, sh, err, func() any { return sh.Catalog.Snapshot() })
	})(w, r, ps)
}

func (m *Manager) ResetFilters(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		err := sh.Dispatch(r.Context(), shell.ResetFilters{})
		m.respond(w, sh, err, func() any { return sh.Catalog.Snapshot() })
	})(w, r, ps)
}

func (m *Manager) Reorder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		var in models.IDList
		if err := utils.DecodeJSON(w, r, &in); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		err := sh.Dispatch(r.Context(), shell.Reorder{IDs: in.IDs})
		m.respond(w, sh, err, func() any { return sh.Catalog.Snapshot() })
	})(w, r, ps)
}

func (m *Manager) ToggleWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, sh *shell.Shell) {
		err := sh.Dispatch(r.Context(), shell.ToggleWishlist{ProductID: ps.ByName("id")})
		m.respond(w, sh, err, func() any { return models.IDList{IDs: sh.Catalog.WishlistIDs()} })
	})(w, r, ps)
}

func (m *Manager) ToggleCompare(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params, sh *shell.Shell) {
		err := sh.Dispatch(r.Context(), shell.ToggleCompare{ProductID: ps.ByName("id")})
		m.respond(w, sh, err, func() any { return models.IDList{IDs: sh.Catalog.CompareIDs()} })
	})(w, r, ps)
}

func (m *Manager) Login(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		var creds models.Credentials
		if err := utils.DecodeJSON(w, r, &creds); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		err := sh.Dispatch(r.Context(), shell.Login{Credentials: creds})
		m.respond(w, sh, err, func() any { return sh.Auth.User() })
	})(w, r, ps)
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		err := sh.Dispatch(r.Context(), shell.Logout{})
		m.respond(w, sh, err, func() any { return map[string]bool{"success": true} })
	})(w, r, ps)
}

// Navigate loads ?url= the way the AJAX navigation does.
func (m *Manager) Navigate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		ref := r.URL.Query().Get("url")
		if ref == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "url required")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, sh.Navigate(r.Context(), ref))
	})(w, r, ps)
}

func (m *Manager) Export(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		data, err := sh.ExportData(r.URL.Query().Get("kind"))
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="vogue-elite-export.json"`)
		_, _ = w.Write(data)
	})(w, r, ps)
}

func (m *Manager) Import(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		var raw rawJSON
		if err := utils.DecodeJSON(w, r, &raw); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if err := sh.ImportData(r.Context(), []byte(raw)); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, lastMessage(sh))
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, viewCart(sh))
	})(w, r, ps)
}

// rawJSON captures a request body verbatim through DecodeJSON.
type rawJSON []byte

func (j *rawJSON) UnmarshalJSON(b []byte) error {
	*j = append((*j)[:0], b...)
	return nil
}

// Notifications streams the session's notifications over a websocket.
func (m *Manager) Notifications(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	m.handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params, sh *shell.Shell) {
		notify.ServeWS(sh.Notify, m.log, w, r)
	})(w, r, ps)
}
