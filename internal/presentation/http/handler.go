package httppresentation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	appInventory "github.com/workboxhq/workbox/internal/application/inventory"
	appOrder "github.com/workboxhq/workbox/internal/application/order"
	appUser "github.com/workboxhq/workbox/internal/application/user"
	domorder "github.com/workboxhq/workbox/internal/domain/order"
	"github.com/workboxhq/workbox/internal/observability"
)

const (
	componentHTTPHandler = "http_server"
	headerUserID         = "X-User-ID"
)

// Pinger reports storage reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	orderService     *appOrder.Service
	inventoryService *appInventory.Service
	userService      *appUser.Service
	storePinger      Pinger // nil when running on the in-memory store
	wsHandler        http.Handler

	log observability.Logger
	tel observability.Observability
}

func NewHandler(
	orderSvc *appOrder.Service,
	inventorySvc *appInventory.Service,
	userSvc *appUser.Service,
	storePinger Pinger,
	wsHandler http.Handler,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		orderService:     orderSvc,
		inventoryService: inventorySvc,
		userService:      userSvc,
		storePinger:      storePinger,
		wsHandler:        wsHandler,
		log:              tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:              tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /", h.handleRoot)
	h.handle(mux, "GET /health", h.handleHealth)

	h.handle(mux, "POST /orders", h.handleSubmitOrder)
	h.handle(mux, "GET /orders/{id}", h.handleGetOrder)
	h.handle(mux, "GET /orders", h.handleListOrders)

	h.handle(mux, "POST /inventory", h.handleCreateItem)
	h.handle(mux, "GET /inventory", h.handleListInventory)
	h.handle(mux, "GET /inventory/{id}", h.handleGetItem)
	h.handle(mux, "POST /inventory/{id}/restock", h.handleRestockItem)

	h.handle(mux, "POST /users", h.handleCreateUser)
	h.handle(mux, "GET /users", h.handleListUsers)
	h.handle(mux, "GET /users/{id}", h.handleGetUser)

	if h.wsHandler != nil {
		mux.Handle("GET /ws", h.wsHandler)
	}

	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, handler http.HandlerFunc) {
	mux.Handle(pattern, h.withObservability(pattern, handler))
}

type lineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type submitOrderRequest struct {
	Lines []lineRequest `json:"lines"`
}

type orderLineResponse struct {
	ItemID    string          `json:"item_id"`
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	OrderID   string              `json:"order_id"`
	UserID    string              `json:"user_id"`
	Status    domorder.Status     `json:"status"`
	Total     decimal.Decimal     `json:"total"`
	Lines     []orderLineResponse `json:"lines"`
	CreatedAt time.Time           `json:"created_at"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, orderLineResponse{
			ItemID:    l.ItemID,
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return orderResponse{
		OrderID:   o.ID,
		UserID:    o.UserID,
		Status:    o.Status,
		Total:     o.Total,
		Lines:     lines,
		CreatedAt: o.CreatedAt,
	}
}

// handleSubmitOrder trusts the verified user identifier supplied by the
// authentication collaborator in the X-User-ID header.
func (h *Handler) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	input := appOrder.SubmitOrderInput{UserID: r.Header.Get(headerUserID)}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, appOrder.LineRequest{ItemID: l.ItemID, Quantity: l.Quantity})
	}

	result, err := h.orderService.SubmitOrder(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(result))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get(headerUserID)
	}

	orders, err := h.orderService.ListByUser(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type createItemRequest struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
}

type itemResponse struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.inventoryService.Create(r.Context(), appInventory.CreateItemInput{
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, itemResponse{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Stock:     item.Stock,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	})
}

func (h *Handler) handleListInventory(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	items, err := h.inventoryService.List(r.Context(), skip, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemResponse{
			ItemID:    item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Stock:     item.Stock,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventoryService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Stock:     item.Stock,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	})
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleRestockItem(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.inventoryService.Restock(r.Context(), r.PathValue("id"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, itemResponse{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Stock:     item.Stock,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	})
}

type createUserRequest struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type userResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.userService.Create(r.Context(), appUser.CreateUserInput{
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		UserID:    u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.userService.List(r.Context(), skip, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			UserID:    u.ID,
			Username:  u.Username,
			FullName:  u.FullName,
			CreatedAt: u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		UserID:    u.ID,
		Username:  u.Username,
		FullName:  u.FullName,
		CreatedAt: u.CreatedAt,
	})
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, errNotFoundRoute)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "workbox api is running",
		"status":  "online",
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	store := "memory"
	status := http.StatusOK
	if h.storePinger != nil {
		store = "online"
		if err := h.storePinger.Ping(r.Context()); err != nil {
			store = "offline"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]string{
		"status":    "healthy",
		"store":     store,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
