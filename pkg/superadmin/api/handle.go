// Package api exposes the elevated admin HTTP endpoints under /superadmin.
//
// Per-request elevation escalates through middleware and handler checks:
// a valid session (Authenticated), an active superadmin account (Elevated),
// a usable delegated token (DelegatedCapable), and, for tenant-scoped
// actions, an explicit tenant grant (TenantAuthorized).
package api

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/meauxhq/meaux-admin/pkg/audit"
	"github.com/meauxhq/meaux-admin/pkg/credbroker"
	"github.com/meauxhq/meaux-admin/pkg/sessions"
	"github.com/meauxhq/meaux-admin/pkg/superadmin"
)

// DefaultAPIHostSuffix restricts delegated calls to the cloud provider's API hosts
const DefaultAPIHostSuffix = ".googleapis.com"

// Handle handles the /superadmin endpoints
type Handle struct {
	service       *superadmin.Service
	broker        *credbroker.Broker
	recorder      *audit.Recorder
	proxyClient   *http.Client
	apiHostSuffix string
}

// Option is a function that configures a Handle
type Option func(*Handle)

// WithProxyClient sets the HTTP client used for delegated calls
func WithProxyClient(client *http.Client) Option {
	return func(h *Handle) {
		h.proxyClient = client
	}
}

// WithAPIHostSuffix sets the host suffix delegated calls may target
func WithAPIHostSuffix(suffix string) Option {
	return func(h *Handle) {
		h.apiHostSuffix = suffix
	}
}

// NewHandle creates a new superadmin API handle
func NewHandle(service *superadmin.Service, broker *credbroker.Broker, recorder *audit.Recorder, opts ...Option) *Handle {
	h := &Handle{
		service:       service,
		broker:        broker,
		recorder:      recorder,
		proxyClient:   &http.Client{Timeout: 30 * time.Second},
		apiHostSuffix: DefaultAPIHostSuffix,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Handler returns the /superadmin router. The caller mounts it behind the
// session middleware; status needs only an authenticated session while
// everything else additionally requires elevation.
func Handler(h *Handle, elevation *superadmin.Middleware) http.Handler {
	r := chi.NewRouter()

	r.Get("/status", h.Status)

	r.Group(func(r chi.Router) {
		r.Use(elevation.RequireSuperadmin)
		r.Post("/accounts", h.CreateAccount)
		r.Get("/accounts", h.ListAccounts)
		r.Post("/tenant-access", h.GrantTenantAccess)
		r.Delete("/tenant-access", h.RevokeTenantAccess)
		r.Get("/audit-log", h.ListAuditLog)
		r.Post("/delegated-call", h.DelegatedCall)
	})

	return r
}

// AccountResponse is the API shape of a superadmin account
type AccountResponse struct {
	ID                  uuid.UUID `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	Role                string    `json:"role"`
	ServiceAccountEmail string    `json:"service_account_email,omitempty"`
	GrantedScopes       []string  `json:"granted_scopes,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
}

// StatusResponse reports the caller's elevation capabilities
type StatusResponse struct {
	IsSuperadmin       bool     `json:"is_superadmin"`
	HasDelegatedAccess bool     `json:"has_delegated_access"`
	Scopes             []string `json:"scopes,omitempty"`
	Tenants            []string `json:"tenants,omitempty"`
}

// Status reports elevation state for the authenticated caller.
// Non-superadmins get a well-formed all-false response, not an error.
func (h *Handle) Status(w http.ResponseWriter, r *http.Request) {
	session, ok := sessions.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	resp := StatusResponse{}

	account, err := h.service.IsSuperadmin(r.Context(), session.Email)
	if err != nil {
		if !errors.Is(err, superadmin.ErrNotSuperadmin) {
			slog.Error("Superadmin status lookup failed", "err", err)
		}
		render.JSON(w, r, resp)
		return
	}

	resp.IsSuperadmin = true
	resp.Scopes = account.GrantedScopes

	// The cache row for this session is created lazily here or on the first
	// delegated call, whichever comes first. Broker failure only degrades
	// the capability flag.
	if _, err := h.broker.GetToken(r.Context(), session.ID); err == nil {
		resp.HasDelegatedAccess = true
	} else if !errors.Is(err, credbroker.ErrNotConfigured) {
		slog.Error("Delegated token probe failed", "err", err)
	}

	grants, err := h.service.ListTenantAccess(r.Context(), account.ID)
	if err != nil {
		slog.Error("Failed to list tenant access", "superadmin_id", account.ID, "err", err)
	}
	for _, grant := range grants {
		resp.Tenants = append(resp.Tenants, grant.TenantID)
	}

	render.JSON(w, r, resp)
}

// CreateAccount creates a superadmin account (Elevated required)
func (h *Handle) CreateAccount(w http.ResponseWriter, r *http.Request) {
	caller, ok := superadmin.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req superadmin.CreateAccountRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req)
	if err != nil {
		var exists superadmin.ErrEmailAlreadyExists
		if errors.As(err, &exists) {
			http.Error(w, exists.Error(), http.StatusConflict)
			return
		}
		http.Error(w, "failed to create account: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.recordAction(r, caller, "superadmin.account.create", "superadmin_account", account.ID.String())

	var resp AccountResponse
	copier.Copy(&resp, account)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// ListAccounts lists all superadmin accounts (Elevated required)
func (h *Handle) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		slog.Error("Failed to list accounts", "err", err)
		http.Error(w, "failed to list accounts", http.StatusInternalServerError)
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		var item AccountResponse
		copier.Copy(&item, &account)
		resp = append(resp, item)
	}

	render.JSON(w, r, map[string]any{
		"accounts": resp,
		"total":    len(resp),
	})
}

// GrantTenantAccess grants tenant access to an account (Elevated required)
func (h *Handle) GrantTenantAccess(w http.ResponseWriter, r *http.Request) {
	caller, ok := superadmin.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req superadmin.GrantTenantAccessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	access, err := h.service.GrantTenantAccess(r.Context(), req)
	if err != nil {
		if errors.Is(err, superadmin.ErrAccountNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to grant tenant access: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry := audit.Entry{
		SuperadminID: caller.ID,
		Action:       "superadmin.tenant_access.grant",
		ResourceType: "tenant",
		ResourceID:   access.TenantID,
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
	}.WithMetadata("target_account_id", req.SuperadminID.String())
	h.recorder.Record(entry)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, access)
}

// RevokeTenantAccess removes a tenant grant (Elevated required)
func (h *Handle) RevokeTenantAccess(w http.ResponseWriter, r *http.Request) {
	caller, ok := superadmin.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req struct {
		SuperadminID uuid.UUID `json:"account_id"`
		TenantID     string    `json:"tenant_id"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SuperadminID == uuid.Nil || req.TenantID == "" {
		http.Error(w, "account_id and tenant_id are required", http.StatusBadRequest)
		return
	}

	if err := h.service.RevokeTenantAccess(r.Context(), req.SuperadminID, req.TenantID); err != nil {
		http.Error(w, "failed to revoke tenant access", http.StatusInternalServerError)
		return
	}

	entry := audit.Entry{
		SuperadminID: caller.ID,
		Action:       "superadmin.tenant_access.revoke",
		ResourceType: "tenant",
		ResourceID:   req.TenantID,
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
	}.WithMetadata("target_account_id", req.SuperadminID.String())
	h.recorder.Record(entry)

	render.NoContent(w, r)
}

// ListAuditLog returns paginated audit entries, newest first (Elevated required)
func (h *Handle) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	entries, total, err := h.recorder.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list audit log", "err", err)
		http.Error(w, "failed to list audit log", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, map[string]any{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// DelegatedCallRequest describes a proxied cloud API call
type DelegatedCallRequest struct {
	URL      string `json:"url"`
	Method   string `json:"method,omitempty"`
	Body     string `json:"body,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`
}

// DelegatedCall proxies a request to the cloud provider API using the
// broker's delegated token (DelegatedCapable required; TenantAuthorized
// when the call is tenant-scoped).
func (h *Handle) DelegatedCall(w http.ResponseWriter, r *http.Request) {
	session, ok := sessions.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	caller, ok := superadmin.AccountFromContext(r.Context())
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req DelegatedCallRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Reject disallowed targets before the token is fetched or attached,
	// so the bearer token cannot be pointed at an arbitrary endpoint.
	target, err := url.Parse(req.URL)
	if err != nil || !h.allowedTarget(target) {
		http.Error(w, "target url not allowed", http.StatusBadRequest)
		return
	}

	if req.TenantID != "" {
		allowed, err := h.service.HasTenantAccess(r.Context(), caller.ID, req.TenantID)
		if err != nil || !allowed {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	token, err := h.broker.GetToken(r.Context(), session.ID)
	if err != nil {
		slog.Error("Delegated capability unavailable", "err", err)
		http.Error(w, "delegated access unavailable", http.StatusServiceUnavailable)
		return
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	proxyReq, err := http.NewRequestWithContext(r.Context(), method, req.URL, body)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	proxyReq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	if req.Body != "" {
		proxyReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.proxyClient.Do(proxyReq)
	if err != nil {
		slog.Error("Delegated call failed", "host", target.Host, "err", err)
		http.Error(w, "cloud provider unreachable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	entry := audit.Entry{
		SuperadminID: caller.ID,
		Action:       "superadmin.delegated_call",
		ResourceType: "cloud_api",
		ResourceID:   target.Host + target.Path,
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
	}.WithMetadata("method", method).WithMetadata("status", resp.StatusCode)
	if req.TenantID != "" {
		entry = entry.WithMetadata("tenant_id", req.TenantID)
	}
	h.recorder.Record(entry)

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

// allowedTarget restricts delegated calls to the expected cloud API hosts
// over https
func (h *Handle) allowedTarget(target *url.URL) bool {
	if target == nil || target.Scheme != "https" {
		return false
	}
	host := target.Hostname()
	return strings.HasSuffix(host, h.apiHostSuffix) || host == strings.TrimPrefix(h.apiHostSuffix, ".")
}

func (h *Handle) recordAction(r *http.Request, caller *superadmin.Account, action, resourceType, resourceID string) {
	h.recorder.Record(audit.Entry{
		SuperadminID: caller.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IP:           clientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
