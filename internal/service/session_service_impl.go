package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/db"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/repository"
)

type sessionService struct {
	sessions repository.SessionRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewSessionService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) SessionService {
	return &sessionService{
		sessions: repository.NewSQLiteSessionRepo(database),
		uow:      uow,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *sessionService) CreateSession(ctx context.Context, req app.CreateSessionRequest) (sess *domain.Session, err error) {
	const op = "create session"
	startedAt := time.Now().UTC()
	fields := map[string]any{"store_id": req.StoreID, "type": string(req.Type)}
	defer func() { observe(ctx, s.observer, "create-session", startedAt, fields, &err) }()

	if _, err = domain.ParseSessionType(string(req.Type)); err != nil {
		return nil, domain.Fail(domain.CodeCreateFailed, op, err)
	}
	if req.StoreID == "" || req.UserID == "" {
		return nil, domain.Conflict(domain.CodeCreateFailed, op, "store and user are required")
	}

	sess = &domain.Session{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Type:       req.Type,
		CompanyID:  req.CompanyID,
		StoreID:    req.StoreID,
		ShipmentID: req.ShipmentID,
		IsActive:   true,
		CreatedBy:  req.UserID,
		CreatedAt:  startedAt.Truncate(time.Second),
	}
	if sess.Name == "" {
		sess.Name = defaultSessionName(req.Type, startedAt)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		store, err := repository.NewSQLiteStoreRepo(tx).GetByID(ctx, req.StoreID)
		if err != nil {
			return err
		}
		if sess.CompanyID == "" {
			sess.CompanyID = store.CompanyID
		}
		if sess.CompanyID != store.CompanyID {
			return fmt.Errorf("store %s does not belong to company %s", store.ID, sess.CompanyID)
		}
		if err := repository.NewSQLiteSessionRepo(tx).Create(ctx, sess); err != nil {
			return err
		}
		// The creator is the first member.
		return repository.NewSQLiteMemberRepo(tx).Add(ctx, &domain.Member{
			ID:        uuid.New().String(),
			SessionID: sess.ID,
			UserID:    req.UserID,
			UserName:  req.UserID,
			JoinedAt:  sess.CreatedAt,
			IsActive:  true,
		})
	})
	if err != nil {
		return nil, fail(domain.CodeCreateFailed, op, err)
	}
	sess.MemberCount = 1
	fields["session_id"] = sess.ID
	return sess, nil
}

func (s *sessionService) JoinSession(ctx context.Context, sessionID, userID string) (res *app.JoinResult, err error) {
	const op = "join session"
	startedAt := time.Now().UTC()
	fields := map[string]any{"session_id": sessionID, "user_id": userID}
	defer func() { observe(ctx, s.observer, "join-session", startedAt, fields, &err) }()

	if userID == "" {
		return nil, domain.Conflict(domain.CodeJoinFailed, op, "user is required")
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sess, err := repository.NewSQLiteSessionRepo(tx).GetByID(ctx, sessionID)
		if err != nil {
			return err
		}
		members := repository.NewSQLiteMemberRepo(tx)
		existing, err := members.Get(ctx, sessionID, userID)
		switch {
		case err == nil:
			res = &app.JoinResult{MemberID: existing.ID, SessionID: sess.ID, CreatedBy: sess.CreatedBy, AlreadyJoined: true}
			return nil
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		if err := sess.CanContribute(); err != nil {
			return err
		}
		m := &domain.Member{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    userID,
			UserName:  userID,
			JoinedAt:  time.Now().UTC(),
			IsActive:  true,
		}
		if err := members.Add(ctx, m); err != nil {
			return err
		}
		res = &app.JoinResult{MemberID: m.ID, SessionID: sess.ID, CreatedBy: sess.CreatedBy}
		return nil
	})
	if err != nil {
		return nil, fail(domain.CodeJoinFailed, op, err)
	}
	fields["already_joined"] = res.AlreadyJoined
	return res, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, "get session", err)
	}
	return sess, nil
}

func (s *sessionService) ListSessions(ctx context.Context, filter app.SessionFilter) ([]*domain.Session, error) {
	sessions, err := s.sessions.List(ctx, repository.SessionListFilter{
		CompanyID:  filter.CompanyID,
		StoreID:    filter.StoreID,
		Type:       filter.Type,
		ShipmentID: filter.ShipmentID,
		ActiveOnly: filter.ActiveOnly,
	})
	if err != nil {
		return nil, fail(domain.CodeLoadFailed, "list sessions", err)
	}
	return sessions, nil
}
