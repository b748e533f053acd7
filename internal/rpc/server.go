package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// ServerConfig holds the settings for NewServer.
type ServerConfig struct {
	// APIKey, when set, must be sent in the apikey header of every call.
	APIKey string
}

type procedure func(ctx context.Context, c *gin.Context) (any, error)

// NewServer exposes backend as POST /rpc/:fn.
func NewServer(backend app.Backend, cfg ServerConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{backend: backend}
	procs := map[string]procedure{
		FnCreateSession:  s.createSession,
		FnJoinSession:    s.joinSession,
		FnAddItems:       s.addItems,
		FnGetItems:       s.getItems,
		FnCompare:        s.compare,
		FnMerge:          s.merge,
		FnSubmit:         s.submit,
		FnListSessions:   s.listSessions,
		FnGetSession:     s.getSession,
		FnSearchProducts: s.searchProducts,
		FnMergeHistory:   s.mergeHistory,
		FnSessionHistory: s.sessionHistory,
		FnShipment:       s.shipment,
	}

	r := gin.New()
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	group := r.Group("/rpc")
	if cfg.APIKey != "" {
		group.Use(requireAPIKey(cfg.APIKey))
	}
	group.POST("/:fn", func(c *gin.Context) {
		proc, ok := procs[c.Param("fn")]
		if !ok {
			c.JSON(http.StatusNotFound, envelope{Error: "unknown procedure " + c.Param("fn"), Code: string(domain.CodeNotFound)})
			return
		}
		data, err := proc(c.Request.Context(), c)
		if err != nil {
			writeError(c, err)
			return
		}
		writeData(c, data)
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, envelope{Error: "route not found"})
	})
	return r
}

type server struct {
	backend app.Backend
}

var errBadParams = errors.New("invalid parameters")

// bind decodes the call parameters. Malformed parameters are a validation
// failure of the call.
func bind(c *gin.Context, params any) error {
	if err := c.ShouldBindJSON(params); err != nil {
		return &domain.SessionError{Code: domain.CodeInvalidItem, Op: c.Param("fn"), Message: err.Error(), Err: errBadParams}
	}
	return nil
}

func (s *server) createSession(ctx context.Context, c *gin.Context) (any, error) {
	var p createSessionParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	st, err := domain.ParseSessionType(p.SessionType)
	if err != nil {
		return nil, &domain.SessionError{Code: domain.CodeInvalidItem, Op: "create session", Message: err.Error()}
	}
	req := app.CreateSessionRequest{
		CompanyID:  p.CompanyID,
		StoreID:    p.StoreID,
		UserID:     p.UserID,
		Type:       st,
		ShipmentID: p.ShipmentID,
		Name:       optional(p.SessionName),
	}
	sess, err := s.backend.CreateSession(ctx, req)
	if err != nil {
		return nil, err
	}
	return sessionToDTO(sess), nil
}

func (s *server) joinSession(ctx context.Context, c *gin.Context) (any, error) {
	var p sessionUserParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	res, err := s.backend.JoinSession(ctx, p.SessionID, p.UserID)
	if err != nil {
		return nil, err
	}
	return joinDTO{
		MemberID:      ptr(res.MemberID),
		SessionID:     ptr(res.SessionID),
		CreatedBy:     ptr(res.CreatedBy),
		AlreadyJoined: ptr(res.AlreadyJoined),
	}, nil
}

func (s *server) addItems(ctx context.Context, c *gin.Context) (any, error) {
	var p addItemsParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	if err := s.backend.AddItems(ctx, p.SessionID, p.UserID, itemsFromDTO(p.Items)); err != nil {
		return nil, err
	}
	return gin.H{"items_added": len(p.Items)}, nil
}

func (s *server) getItems(ctx context.Context, c *gin.Context) (any, error) {
	var p sessionUserParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	res, err := s.backend.GetItems(ctx, p.SessionID, p.UserID)
	if err != nil {
		return nil, err
	}
	return itemsResultToDTO(res), nil
}

func (s *server) compare(ctx context.Context, c *gin.Context) (any, error) {
	var p compareParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	res, err := s.backend.CompareSessions(ctx, p.SessionIDA, p.SessionIDB, p.UserID)
	if err != nil {
		return nil, err
	}
	return comparisonToDTO(res), nil
}

func (s *server) merge(ctx context.Context, c *gin.Context) (any, error) {
	var p mergeParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	out, err := s.backend.MergeSessions(ctx, p.TargetSessionID, p.SourceSessionID, p.UserID)
	if err != nil {
		return nil, err
	}
	return mergeToDTO(out), nil
}

func (s *server) submit(ctx context.Context, c *gin.Context) (any, error) {
	var p submitParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	res, err := s.backend.SubmitSession(ctx, app.SubmitRequest{
		SessionID: p.SessionID,
		UserID:    p.UserID,
		Items:     itemsFromDTO(p.Items),
		IsFinal:   p.IsFinal,
	})
	if err != nil {
		return nil, err
	}
	return submitToDTO(res), nil
}

func (s *server) listSessions(ctx context.Context, c *gin.Context) (any, error) {
	var p listSessionsParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	sessions, err := s.backend.ListSessions(ctx, app.SessionFilter{
		CompanyID:  p.CompanyID,
		StoreID:    p.StoreID,
		Type:       domain.SessionType(p.SessionType),
		ShipmentID: p.ShipmentID,
		ActiveOnly: optional(p.IsActive),
	})
	if err != nil {
		return nil, err
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionToDTO(sess))
	}
	return out, nil
}

func (s *server) getSession(ctx context.Context, c *gin.Context) (any, error) {
	var p sessionParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	sess, err := s.backend.GetSession(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	return sessionToDTO(sess), nil
}

func (s *server) searchProducts(ctx context.Context, c *gin.Context) (any, error) {
	var p searchParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	products, err := s.backend.SearchProducts(ctx, p.StoreID, p.Search, p.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]productDTO, 0, len(products))
	for _, prod := range products {
		out = append(out, productToDTO(prod))
	}
	return out, nil
}

func (s *server) mergeHistory(ctx context.Context, c *gin.Context) (any, error) {
	var p sessionParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	records, err := s.backend.MergeHistory(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	out := make([]mergeRecordDTO, 0, len(records))
	for _, m := range records {
		out = append(out, mergeRecordToDTO(m))
	}
	return out, nil
}

func (s *server) sessionHistory(ctx context.Context, c *gin.Context) (any, error) {
	var p sessionParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	subs, err := s.backend.ListSubmissions(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	out := make([]submitDTO, 0, len(subs))
	for _, sub := range subs {
		out = append(out, submitToDTO(sub))
	}
	return out, nil
}

func (s *server) shipment(ctx context.Context, c *gin.Context) (any, error) {
	var p shipmentParams
	if err := bind(c, &p); err != nil {
		return nil, err
	}
	progress, err := s.backend.ShipmentProgress(ctx, p.ShipmentID)
	if err != nil {
		return nil, err
	}
	return shipmentToDTO(progress), nil
}

func writeData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// writeError reports err in the envelope with its code, and picks the HTTP
// status from the code's kind.
func writeError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	switch {
	case code == domain.CodeNotFound:
		status = http.StatusNotFound
	case code.Kind() == domain.KindValidation:
		status = http.StatusBadRequest
	case code.Kind() == domain.KindStateConflict:
		status = http.StatusConflict
	}
	msg := err.Error()
	var se *domain.SessionError
	if errors.As(err, &se) && se.Message != "" {
		msg = se.Message
	}
	_ = c.Error(err)
	c.JSON(status, envelope{Error: msg, Code: string(code)})
}

func requireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("apikey") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Error: "invalid api key"})
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
			if c.Writer.Status() >= http.StatusInternalServerError {
				logger.ErrorContext(c.Request.Context(), "rpc request failed", attrs...)
				return
			}
		}
		logger.InfoContext(c.Request.Context(), "rpc request", attrs...)
	}
}
