// Package rpc carries the session contract over HTTP: RemoteClient calls a
// backend's remote procedures, and NewServer exposes any app.Backend under
// the same procedure names.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

const DefaultTimeout = 10 * time.Second

// ClientConfig holds the settings for a RemoteClient.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// RemoteClient implements app.Backend against a remote store of record.
type RemoteClient struct {
	cfg    ClientConfig
	http   *http.Client
	logger *slog.Logger
}

var _ app.Backend = (*RemoteClient)(nil)

func NewRemoteClient(cfg ClientConfig, logger *slog.Logger) *RemoteClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RemoteClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		logger: logger,
	}
}

func (c *RemoteClient) CreateSession(ctx context.Context, req app.CreateSessionRequest) (*domain.Session, error) {
	const op = "create session"
	params := createSessionParams{
		CompanyID:   req.CompanyID,
		StoreID:     req.StoreID,
		UserID:      req.UserID,
		SessionType: string(req.Type),
		ShipmentID:  req.ShipmentID,
	}
	if req.Name != "" {
		params.SessionName = &req.Name
	}
	var d sessionDTO
	if err := c.call(ctx, FnCreateSession, params, &d); err != nil {
		return nil, domain.Fail(domain.CodeCreateFailed, op, err)
	}
	f := &fields{op: op}
	s := d.decode(f, "")
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return s, nil
}

func (c *RemoteClient) JoinSession(ctx context.Context, sessionID, userID string) (*app.JoinResult, error) {
	const op = "join session"
	var d joinDTO
	if err := c.call(ctx, FnJoinSession, sessionUserParams{SessionID: sessionID, UserID: userID}, &d); err != nil {
		return nil, domain.Fail(domain.CodeJoinFailed, op, err)
	}
	f := &fields{op: op}
	res := d.decode(f)
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return res, nil
}

func (c *RemoteClient) AddItems(ctx context.Context, sessionID, userID string, items []domain.ItemInput) error {
	params := addItemsParams{SessionID: sessionID, UserID: userID, Items: itemsToDTO(items)}
	if err := c.call(ctx, FnAddItems, params, nil); err != nil {
		return domain.Fail(domain.CodeSaveFailed, "add items", err)
	}
	return nil
}

func (c *RemoteClient) GetItems(ctx context.Context, sessionID, userID string) (*app.ItemsResult, error) {
	const op = "get items"
	var d itemsDTO
	if err := c.call(ctx, FnGetItems, sessionUserParams{SessionID: sessionID, UserID: userID}, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	res := d.decode(f)
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return res, nil
}

func (c *RemoteClient) CompareSessions(ctx context.Context, sessionIDA, sessionIDB, userID string) (*domain.ComparisonResult, error) {
	const op = "compare sessions"
	var d compareDTO
	params := compareParams{SessionIDA: sessionIDA, SessionIDB: sessionIDB, UserID: userID}
	if err := c.call(ctx, FnCompare, params, &d); err != nil {
		return nil, domain.Fail(domain.CodeCompareFailed, op, err)
	}
	f := &fields{op: op}
	res := d.decode(f)
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return res, nil
}

func (c *RemoteClient) MergeSessions(ctx context.Context, targetID, sourceID, userID string) (*domain.MergeOutcome, error) {
	const op = "merge sessions"
	var d mergeDTO
	params := mergeParams{TargetSessionID: targetID, SourceSessionID: sourceID, UserID: userID}
	if err := c.call(ctx, FnMerge, params, &d); err != nil {
		return nil, domain.Fail(domain.CodeMergeFailed, op, err)
	}
	f := &fields{op: op}
	out := d.decode(f)
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return out, nil
}

func (c *RemoteClient) SubmitSession(ctx context.Context, req app.SubmitRequest) (*domain.SubmitResult, error) {
	const op = "submit session"
	var d submitDTO
	params := submitParams{SessionID: req.SessionID, UserID: req.UserID, Items: itemsToDTO(req.Items), IsFinal: req.IsFinal}
	if err := c.call(ctx, FnSubmit, params, &d); err != nil {
		return nil, domain.Fail(domain.CodeSubmitFailed, op, err)
	}
	f := &fields{op: op}
	res := d.decode(f, "")
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return res, nil
}

func (c *RemoteClient) ListSessions(ctx context.Context, filter app.SessionFilter) ([]*domain.Session, error) {
	const op = "list sessions"
	params := listSessionsParams{
		CompanyID:   filter.CompanyID,
		StoreID:     filter.StoreID,
		SessionType: string(filter.Type),
		ShipmentID:  filter.ShipmentID,
	}
	if filter.ActiveOnly {
		params.IsActive = ptr(true)
	}
	var d []sessionDTO
	if err := c.call(ctx, FnListSessions, params, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	out := make([]*domain.Session, 0, len(d))
	for i, s := range d {
		out = append(out, s.decode(f, fmt.Sprintf("[%d].", i)))
	}
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return out, nil
}

func (c *RemoteClient) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	const op = "get session"
	var d sessionDTO
	if err := c.call(ctx, FnGetSession, sessionParams{SessionID: sessionID}, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	s := d.decode(f, "")
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return s, nil
}

func (c *RemoteClient) SearchProducts(ctx context.Context, storeID, query string, limit int) ([]domain.Product, error) {
	const op = "search products"
	var d []productDTO
	if err := c.call(ctx, FnSearchProducts, searchParams{StoreID: storeID, Search: query, Limit: limit}, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	out := make([]domain.Product, 0, len(d))
	for i, p := range d {
		out = append(out, p.decode(f, fmt.Sprintf("[%d].", i)))
	}
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return out, nil
}

func (c *RemoteClient) MergeHistory(ctx context.Context, sessionID string) ([]domain.MergeRecord, error) {
	const op = "merge history"
	var d []mergeRecordDTO
	if err := c.call(ctx, FnMergeHistory, sessionParams{SessionID: sessionID}, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	out := make([]domain.MergeRecord, 0, len(d))
	for i, m := range d {
		out = append(out, m.decode(f, fmt.Sprintf("[%d].", i)))
	}
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return out, nil
}

func (c *RemoteClient) ListSubmissions(ctx context.Context, sessionID string) ([]*domain.SubmitResult, error) {
	const op = "list submissions"
	var d []submitDTO
	if err := c.call(ctx, FnSessionHistory, sessionParams{SessionID: sessionID}, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	out := make([]*domain.SubmitResult, 0, len(d))
	for i, sub := range d {
		out = append(out, sub.decode(f, fmt.Sprintf("[%d].", i)))
	}
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return out, nil
}

func (c *RemoteClient) ShipmentProgress(ctx context.Context, shipmentID string) (*domain.ShipmentProgress, error) {
	const op = "shipment progress"
	var d shipmentDTO
	if err := c.call(ctx, FnShipment, shipmentParams{ShipmentID: shipmentID}, &d); err != nil {
		return nil, domain.Fail(domain.CodeLoadFailed, op, err)
	}
	f := &fields{op: op}
	p := d.decode(f)
	if f.err != nil {
		return nil, domain.Fail(domain.CodeDecodeError, op, f.err)
	}
	return p, nil
}

// call posts params to fn and unmarshals the envelope's data into out. A
// failure reported by the backend keeps the backend's error code when it
// sent one.
func (c *RemoteClient) call(ctx context.Context, fn string, params, out any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		c.logger.DebugContext(ctx, "rpc call",
			"fn", fn,
			"duration_ms", time.Since(start).Milliseconds(),
			"status", status,
			"ok", err == nil,
		)
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling %s params: %w", fn, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/rpc/"+fn, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("apikey", c.cfg.APIKey)
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling %s: %w", fn, err)
	}
	defer httpResp.Body.Close()
	status = httpResp.StatusCode

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", fn, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s returned status %d: %s", fn, httpResp.StatusCode, strings.TrimSpace(string(body)))
		}
		return fmt.Errorf("decoding %s response: %w", fn, err)
	}
	if !env.Success {
		return remoteError(fn, env)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domain.Fail(domain.CodeDecodeError, fn, &DecodeError{Op: fn, Field: "data"})
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", fn, err)
	}
	return nil
}

func remoteError(fn string, env envelope) error {
	msg := env.Error
	if msg == "" {
		msg = "no error message"
	}
	cause := fmt.Errorf("%w: %s: %s", ErrRemote, fn, msg)
	if env.Code == "" {
		return cause
	}
	return &domain.SessionError{Code: domain.ErrorCode(env.Code), Message: msg, Err: cause}
}

// IsDecodeError reports whether err was caused by an incomplete response.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
