package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"techservice/internal/client"
	"techservice/internal/http/middleware"
	"techservice/internal/model"
	"techservice/internal/service"
)

type Handler struct {
	ticketService     *service.TicketService
	transitionService *service.TransitionService
	catalogService    *service.CatalogService
	authService       *service.AuthService
	analyticsService  *service.AnalyticsService
	log               zerolog.Logger
}

func NewHandler(
	ticketService *service.TicketService,
	transitionService *service.TransitionService,
	catalogService *service.CatalogService,
	authService *service.AuthService,
	analyticsService *service.AnalyticsService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ticketService:     ticketService,
		transitionService: transitionService,
		catalogService:    catalogService,
		authService:       authService,
		analyticsService:  analyticsService,
		log:               log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	r.POST("/auth/login", h.login)

	protected := r.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/auth/logout", h.logout)
		protected.GET("/me", h.me)
		protected.GET("/pipeline", h.pipeline)
	}

	staff := protected.Group("/staff")
	staff.Use(middleware.RequireRole(model.RoleStaff))
	{
		staff.GET("/board", h.board)
		staff.POST("/tickets", h.createTicket)
		staff.GET("/tickets/:id", h.getTicket)
		staff.PUT("/tickets/:id", h.updateTicket)
		staff.POST("/tickets/:id/transition", h.transitionTicket)
		staff.POST("/tickets/:id/won", h.markWon)
		staff.POST("/tickets/:id/clear-won", h.clearWon)
		staff.GET("/tickets/:id/notes", h.listNotes)
		staff.POST("/tickets/:id/notes", h.addNote)
		staff.GET("/won", h.listWon)
		staff.GET("/analytics", h.staffAnalytics)
		staff.GET("/reports/activity", h.activityReport)
		staff.GET("/devices", h.listDevices)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/board", h.board)
		admin.GET("/tickets", h.listTickets)
		admin.POST("/tickets", h.createTicket)
		admin.GET("/tickets/:id", h.getTicket)
		admin.PUT("/tickets/:id", h.updateTicket)
		admin.POST("/tickets/:id/clear-won", h.clearWon)
		admin.GET("/tickets/:id/notes", h.listNotes)
		admin.GET("/won", h.listWon)

		admin.GET("/devices", h.listDevices)
		admin.POST("/devices", h.createDevice)
		admin.DELETE("/devices/:id", h.deleteDevice)

		admin.GET("/technicians", h.listTechnicians)
		admin.POST("/technicians", h.createTechnician)
		admin.PUT("/technicians/:id/password", h.setTechnicianPassword)
		admin.PUT("/technicians/:id/active", h.setTechnicianActive)
		admin.DELETE("/technicians/:id", h.deleteTechnician)

		admin.GET("/analytics", h.companyAnalytics)
		admin.GET("/reports/activity", h.activityReport)
		admin.GET("/customers", h.listCustomers)
	}
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.SessionToken(c)); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"logged_out": true}))
}

func (h *Handler) me(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{
		"user_id": principal.UserID,
		"role":    principal.Role,
		"name":    principal.Name,
	}))
}

func (h *Handler) pipeline(c *gin.Context) {
	c.JSON(http.StatusOK, successResponse(service.Pipeline()))
}

func (h *Handler) board(c *gin.Context) {
	columns, err := h.ticketService.Board(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(columns))
}

func (h *Handler) listTickets(c *gin.Context) {
	tickets, err := h.ticketService.List(c.Request.Context(), service.TicketListQuery{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		Technician: c.Query("technician"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(tickets))
}

func (h *Handler) createTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req service.TicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(ticket))
}

func (h *Handler) getTicket(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ticket, err := h.ticketService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) updateTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req service.TicketInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	ticket, err := h.ticketService.Update(c.Request.Context(), principal, id, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

type transitionRequest struct {
	Target              string         `json:"target" binding:"required"`
	Note                string         `json:"note"`
	ApprovedLaborCost   service.Amount `json:"approved_labor_cost"`
	ApprovedServiceCost service.Amount `json:"approved_service_cost"`
	InvoiceNumber       string         `json:"invoice_number"`
	TotalServiceAmount  service.Amount `json:"total_service_amount"`
}

func (h *Handler) transitionTicket(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.transitionService.RequestTransition(c.Request.Context(), service.TransitionRequest{
		TicketID:            id,
		Target:              model.TicketStatus(strings.TrimSpace(req.Target)),
		Actor:               principal,
		Note:                req.Note,
		ApprovedLaborCost:   req.ApprovedLaborCost,
		ApprovedServiceCost: req.ApprovedServiceCost,
		InvoiceNumber:       req.InvoiceNumber,
		TotalServiceAmount:  req.TotalServiceAmount,
	})
	if err != nil {
		if result != nil && errors.Is(err, service.ErrPartialFailure) {
			c.JSON(http.StatusOK, gin.H{"data": result, "warning": err.Error()})
			return
		}
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) markWon(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	ticket, err := h.transitionService.MarkWon(c.Request.Context(), id, principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) clearWon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ticket, err := h.transitionService.ClearWon(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(ticket))
}

func (h *Handler) listWon(c *gin.Context) {
	report, err := h.transitionService.ListWon(c.Request.Context(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) listNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	notes, err := h.ticketService.ListNotes(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(notes))
}

func (h *Handler) addNote(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	note, err := h.ticketService.AddNote(c.Request.Context(), principal, id, req.Content)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(note))
}

func (h *Handler) listDevices(c *gin.Context) {
	devices, err := h.catalogService.ListDevices(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(devices))
}

func (h *Handler) createDevice(c *gin.Context) {
	var req service.DeviceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	device, err := h.catalogService.CreateDevice(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(device))
}

func (h *Handler) deleteDevice(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteDevice(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) listTechnicians(c *gin.Context) {
	technicians, err := h.catalogService.ListTechnicians(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(technicians))
}

func (h *Handler) createTechnician(c *gin.Context) {
	var req service.TechnicianInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	technician, err := h.catalogService.CreateTechnician(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(technician))
}

func (h *Handler) setTechnicianPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.catalogService.SetTechnicianPassword(c.Request.Context(), id, req.Password); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) setTechnicianActive(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.catalogService.SetTechnicianActive(c.Request.Context(), id, *req.Active); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) deleteTechnician(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteTechnician(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) companyAnalytics(c *gin.Context) {
	report, err := h.analyticsService.Company(c.Request.Context(), c.Query("range"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) staffAnalytics(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	report, err := h.analyticsService.Staff(c.Request.Context(), principal.UserID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) activityReport(c *gin.Context) {
	var query service.ActivityQuery
	loc := h.analyticsService.Location()

	if raw := c.Query("start_date"); raw != "" {
		t, err := parseTime(raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("start_date: "+err.Error()))
			return
		}
		query.From = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := parseTime(raw, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("end_date: "+err.Error()))
			return
		}
		query.To = &t
	}
	if raw := strings.TrimSpace(c.Query("technician")); raw != "" && raw != service.TechnicianAll {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("technician: must be a technician id"))
			return
		}
		query.Technician = &id
	}

	report, err := h.analyticsService.Activity(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) listCustomers(c *gin.Context) {
	customers, err := h.analyticsService.Customers(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(customers))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrRejected):
		reason, _ := service.RejectionReason(err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": reason})
	case errors.Is(err, service.ErrBusy), errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrVerificationFailed):
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("write verification failed")
		c.JSON(http.StatusBadGateway, errorResponse(err.Error()))
	case errors.Is(err, client.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, errorResponse("authentication service unavailable"))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// parseTime reads a date or timestamp. Values without an offset are taken in
// loc.
func parseTime(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}
