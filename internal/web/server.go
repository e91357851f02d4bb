// Package web serves the public storefront pages and the admin panel.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/jogardn/storefront/internal/auth"
	"github.com/jogardn/storefront/internal/storefront"
	"github.com/jogardn/storefront/pkg/models"
	"github.com/sirupsen/logrus"
)

type OrderService interface {
	SubmitOrder(ctx context.Context, form storefront.OrderForm) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

type ContactService interface {
	SubmitContact(ctx context.Context, form storefront.ContactForm) (*models.ContactMessage, error)
}

type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.Admin, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type MetricsSource interface {
	Metrics() map[string]interface{}
}

// Deps lists what the HTTP layer needs. Hub and Breaker are optional.
type Deps struct {
	Orders   OrderService
	Contacts ContactService
	Auth     Authenticator
	Sessions *auth.Sessions
	DB       Pinger
	Breaker  MetricsSource
	Hub      http.Handler
	Location *time.Location
	Logger   *logrus.Logger
}

type Server struct {
	orders   OrderService
	contacts ContactService
	auth     Authenticator
	sessions *auth.Sessions
	db       Pinger
	breaker  MetricsSource
	hub      http.Handler
	pages    *renderer
	logger   *logrus.Logger
}

func NewServer(deps Deps) (*Server, error) {
	pages, err := newRenderer(deps.Location)
	if err != nil {
		return nil, err
	}
	return &Server{
		orders:   deps.Orders,
		contacts: deps.Contacts,
		auth:     deps.Auth,
		sessions: deps.Sessions,
		db:       deps.DB,
		breaker:  deps.Breaker,
		hub:      deps.Hub,
		pages:    pages,
		logger:   deps.Logger,
	}, nil
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", s.index).Methods("GET")
	router.HandleFunc("/delivery", s.delivery).Methods("GET")
	router.HandleFunc("/contact", s.contactForm).Methods("GET")
	router.HandleFunc("/contact", s.submitContact).Methods("POST")
	router.HandleFunc("/order", s.orderForm).Methods("GET")
	router.HandleFunc("/order", s.submitOrder).Methods("POST")
	router.HandleFunc("/health", s.healthCheck).Methods("GET")

	router.HandleFunc("/admin/login", s.loginForm).Methods("GET")
	router.HandleFunc("/admin/login", s.login).Methods("POST")
	router.HandleFunc("/admin/logout", s.logout).Methods("GET")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/dashboard", s.dashboard).Methods("GET")
	admin.HandleFunc("/order/{id:[0-9]+}", s.orderDetail).Methods("GET")
	admin.HandleFunc("/order/{id:[0-9]+}/status", s.updateStatus).Methods("POST")
	if s.hub != nil {
		admin.Handle("/ws", s.hub).Methods("GET")
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound)
	})
	router.Use(loggingMiddleware(s.logger))
	return router
}

var notices = map[string]string{
	"order":   "Thank you! Your order has been received. We will contact you soon.",
	"contact": "Thank you! Your message has been sent.",
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index", pageData{
		Title:  "Custom clothing",
		Notice: notices[r.URL.Query().Get("notice")],
	})
}

func (s *Server) delivery(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "delivery", pageData{Title: "Delivery"})
}

func (s *Server) contactForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "contact", pageData{
		Title:  "Contact us",
		Notice: notices[r.URL.Query().Get("notice")],
	})
}

func (s *Server) submitContact(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	form := storefront.ContactForm{
		Method:   r.PostForm.Get("contact_method"),
		Name:     r.PostForm.Get("contact_name"),
		Phone:    r.PostForm.Get("contact_phone"),
		Username: r.PostForm.Get("contact_username"),
		Subject:  r.PostForm.Get("contact_subject"),
		Message:  r.PostForm.Get("contact_message"),
	}

	if _, err := s.contacts.SubmitContact(r.Context(), form); err != nil {
		var verr *storefront.ValidationError
		if errors.As(err, &verr) {
			s.render(w, r, http.StatusBadRequest, "contact", pageData{
				Title:  "Contact us",
				Error:  "Please fill in all required fields.",
				Errors: verr.Fields,
				Form:   formValues(r),
			})
			return
		}
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, "/contact?notice=contact", http.StatusSeeOther)
}

func (s *Server) orderForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "order", pageData{Title: "Place an order"})
}

func (s *Server) submitOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	form := storefront.OrderForm{
		CustomerName:    r.PostForm.Get("customer_name"),
		CustomerEmail:   r.PostForm.Get("customer_email"),
		CustomerPhone:   r.PostForm.Get("customer_phone"),
		ProductType:     r.PostForm.Get("product_type"),
		Description:     r.PostForm.Get("description"),
		Colors:          r.PostForm.Get("colors"),
		Sizes:           r.PostForm.Get("sizes"),
		DeliveryAddress: r.PostForm.Get("delivery_address"),
	}

	if _, err := s.orders.SubmitOrder(r.Context(), form); err != nil {
		var verr *storefront.ValidationError
		if errors.As(err, &verr) {
			s.render(w, r, http.StatusBadRequest, "order", pageData{
				Title:  "Place an order",
				Error:  "Please check the highlighted fields.",
				Errors: verr.Fields,
				Form:   formValues(r),
			})
			return
		}
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, "/?notice=order", http.StatusSeeOther)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "admin_login", pageData{Title: "Admin login"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}
	username := r.PostForm.Get("username")

	admin, err := s.auth.Login(r.Context(), username, r.PostForm.Get("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.render(w, r, http.StatusUnauthorized, "admin_login", pageData{
			Title: "Admin login",
			Error: "Invalid username or password",
			Form:  map[string]string{"username": username},
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	token, expires, err := s.sessions.Issue(admin.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.sessions.SetCookie(w, token, expires)
	http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.ListOrders(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin_dashboard", pageData{
		Title:  "Orders",
		Orders: orders,
	})
}

func (s *Server) orderDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}

	order, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "admin_order_detail", pageData{
		Title:  "Order #" + strconv.FormatInt(order.ID, 10),
		Order:  order,
		Notice: statusNotice(r),
	})
}

func statusNotice(r *http.Request) string {
	if r.URL.Query().Get("notice") == "status" {
		return "Status updated."
	}
	return ""
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	err := s.orders.UpdateStatus(r.Context(), id, r.PostForm.Get("status"))
	var verr *storefront.ValidationError
	if errors.As(err, &verr) {
		order, getErr := s.orders.GetOrder(r.Context(), id)
		if getErr != nil {
			s.fail(w, r, getErr)
			return
		}
		s.render(w, r, http.StatusBadRequest, "admin_order_detail", pageData{
			Title:  "Order #" + strconv.FormatInt(id, 10),
			Order:  order,
			Error:  "Status must be at most 64 characters.",
			Errors: verr.Fields,
		})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.Redirect(w, r, "/admin/order/"+strconv.FormatInt(id, 10)+"?notice=status", http.StatusSeeOther)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":  "healthy",
		"service": "storefront",
	}
	if s.breaker != nil {
		response["mail_circuit_breaker"] = s.breaker.Metrics()
	}

	code := http.StatusOK
	if err := s.db.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("Health check failed")
		response["status"] = "unhealthy"
		response["error"] = "database connection failed"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func formValues(r *http.Request) map[string]string {
	values := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return values
}
