package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/opencadastre/cadastre"
	"github.com/opencadastre/cadastre/internal/domain"
	"github.com/opencadastre/cadastre/internal/present/rest/presenter"
	"github.com/opencadastre/cadastre/internal/service"
	"github.com/opencadastre/cadastre/internal/usecase"
)

type Handler struct {
	config   domain.Config
	registry *usecase.RegistryUsecase
	signal   *service.SignalService
}

func NewHandler(
	config domain.Config,
	registry *usecase.RegistryUsecase,
	signal *service.SignalService,
) *Handler {
	return &Handler{
		config:   config,
		registry: registry,
		signal:   signal,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/cadastre", h.handleWellKnown)
	e.POST("/api/v1/records", h.handleRegister)
	e.GET("/api/v1/records/:id", h.handleRead)
	e.PUT("/api/v1/records/:id", h.handleModify)
	e.POST("/api/v1/records/:id/holder", h.handleReassignHolder)
	e.DELETE("/api/v1/records/:id", h.handleDelete)
	e.POST("/api/v1/records/:id/grants", h.handleGrantAccess)
	e.DELETE("/api/v1/records/:id/grants/:accessor", h.handleRevokeAccess)
	e.POST("/api/v1/records/:id/attestation", h.handleAttest)
	e.GET("/api/v1/authenticators/:id", h.handleAuthenticatorStatus)
	e.PUT("/api/v1/authenticators/:id", h.handleAuthorizeAuthenticator)
	e.DELETE("/api/v1/authenticators/:id", h.handleRevokeAuthenticator)
	e.GET("/api/v1/stats", h.handleStats)
	e.GET("/realtime", h.handleRealtime)
}

func requesterID(c echo.Context) string {
	id, _ := c.Request().Context().Value(domain.RequesterIdCtxKey).(string)
	return id
}

func recordID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	wellknown := cadastre.WellKnownCadastre{
		Version: "1.0",
		Domain:  h.config.FQDN,
		Admin:   h.config.Admin,
		Endpoints: map[string]cadastre.Endpoint{
			"net.cadastre.record.register": {
				Template: "/api/v1/records",
				Method:   "POST",
			},
			"net.cadastre.record.read": {
				Template: "/api/v1/records/{id}",
				Method:   "GET",
			},
			"net.cadastre.record.modify": {
				Template: "/api/v1/records/{id}",
				Method:   "PUT",
			},
			"net.cadastre.record.reassign": {
				Template: "/api/v1/records/{id}/holder",
				Method:   "POST",
			},
			"net.cadastre.record.delete": {
				Template: "/api/v1/records/{id}",
				Method:   "DELETE",
			},
			"net.cadastre.access.grant": {
				Template: "/api/v1/records/{id}/grants",
				Method:   "POST",
			},
			"net.cadastre.access.revoke": {
				Template: "/api/v1/records/{id}/grants/{accessor}",
				Method:   "DELETE",
			},
			"net.cadastre.record.attest": {
				Template: "/api/v1/records/{id}/attestation",
				Method:   "POST",
			},
			"net.cadastre.authenticator.status": {
				Template: "/api/v1/authenticators/{id}",
				Method:   "GET",
			},
			"net.cadastre.stats": {
				Template: "/api/v1/stats",
				Method:   "GET",
			},
			"net.cadastre.realtime": {
				Template: "/realtime",
				Method:   "GET",
			},
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	var input cadastre.RecordInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	id, err := h.registry.Register(ctx, caller, input)
	if err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, cadastre.RegisterResponse{ID: id})
}

func (h *Handler) handleRead(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	result, err := h.registry.Read(ctx, caller, id)
	if err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, toRecordView(result))
}

func (h *Handler) handleModify(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	var input cadastre.RecordInput
	if err := c.Bind(&input); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.registry.Modify(ctx, caller, id, input); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleReassignHolder(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	var req cadastre.ReassignRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if !cadastre.IsAddress(req.NewHolder) {
		return presenter.BadRequestMessage(c, "invalid holder address")
	}

	if err := h.registry.ReassignHolder(ctx, caller, id, req.NewHolder); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	if err := h.registry.Delete(ctx, caller, id); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleGrantAccess(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	var req cadastre.GrantRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if !cadastre.IsAddress(req.Accessor) {
		return presenter.BadRequestMessage(c, "invalid accessor address")
	}

	if err := h.registry.GrantAccess(ctx, caller, id, req.Accessor); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleRevokeAccess(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	accessor := c.Param("accessor")
	if !cadastre.IsAddress(accessor) {
		return presenter.BadRequestMessage(c, "invalid accessor address")
	}

	if err := h.registry.RevokeAccess(ctx, caller, id, accessor); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleAttest(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	id, err := recordID(c)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid record id")
	}

	var req cadastre.AttestRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.registry.Attest(ctx, caller, id, req.Notes); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleAuthenticatorStatus(c echo.Context) error {
	ctx := c.Request().Context()

	identity := c.Param("id")
	present, err := h.registry.CheckAuthenticatorStatus(ctx, identity)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, cadastre.AuthenticatorStatus{Identity: identity, Present: present})
}

func (h *Handler) handleAuthorizeAuthenticator(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	identity := c.Param("id")
	if !cadastre.IsAddress(identity) {
		return presenter.BadRequestMessage(c, "invalid authenticator address")
	}

	if err := h.registry.AuthorizeAuthenticator(ctx, caller, identity); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleRevokeAuthenticator(c echo.Context) error {
	ctx := c.Request().Context()

	caller := requesterID(c)
	if caller == "" {
		return presenter.Unauthenticated(c)
	}

	identity := c.Param("id")
	if !cadastre.IsAddress(identity) {
		return presenter.BadRequestMessage(c, "invalid authenticator address")
	}

	if err := h.registry.RevokeAuthenticator(ctx, caller, identity); err != nil {
		return presenter.DomainError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := h.registry.Stats(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}

	return presenter.OK(c, cadastre.Stats{
		RecordCount:  stats.RecordCount,
		CurrentClock: stats.CurrentClock,
	})
}

func toRecordView(result usecase.ReadResult) cadastre.RecordView {
	view := cadastre.RecordView{
		ID:           result.Record.ID,
		Name:         result.Record.Name,
		Holder:       result.Record.Holder,
		Volume:       result.Record.Volume,
		RegisteredAt: result.Record.RegisteredAt,
		Summary:      result.Record.Summary,
		Categories:   result.Record.Categories,
	}
	if result.Attestation != nil {
		current := cadastre.FingerprintRecord(
			result.Record.Name,
			result.Record.Volume,
			result.Record.Summary,
			result.Record.Categories,
		)
		view.Attestation = &cadastre.AttestationView{
			Authenticated: result.Attestation.Authenticated,
			Attestor:      result.Attestation.Attestor,
			AttestedAt:    result.Attestation.AttestedAt,
			Notes:         result.Attestation.Notes,
			Stale:         result.Attestation.Fingerprint != current,
		}
	}
	return view
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type    string   `json:"type"`
	Filters []string `json:"filters"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	input := make(chan []string)
	defer close(input)
	output := make(chan cadastre.Event)
	defer close(output)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				input <- req.Filters
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Filters),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
