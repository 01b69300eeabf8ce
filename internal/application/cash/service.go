package cash

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pdv/backend/internal/domain/cash"
	"github.com/pdv/backend/internal/domain/sale"
	"github.com/pdv/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service manages cash sessions
type Service struct {
	sessions  cash.SessionRepository
	sales     sale.SaleRepository
	tx        shared.Transactor
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewService creates a new cash session service
func NewService(sessions cash.SessionRepository, sales sale.SaleRepository, tx shared.Transactor, publisher shared.EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		sessions:  sessions,
		sales:     sales,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
	}
}

// Open starts a session for the operator. An operator can hold a single open session.
func (s *Service) Open(ctx context.Context, companyID, operatorID uuid.UUID, req OpenSessionRequest) (*SessionResponse, error) {
	var opened *cash.Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.sessions.FindOpenByOperator(ctx, companyID, operatorID)
		if err == nil {
			return shared.NewDomainError("CASH_SESSION_ALREADY_OPEN", "Operator already has an open cash session")
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		session, err := cash.OpenSession(companyID, operatorID, req.OpeningBalance)
		if err != nil {
			return err
		}
		opened = session
		return s.sessions.Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, opened)
	s.logger.Info("Cash session opened",
		zap.String("session_id", opened.ID.String()),
		zap.String("operator_id", operatorID.String()),
		zap.String("opening_balance", opened.OpeningBalance.StringFixed(2)))
	resp := ToSessionResponse(opened, TotalsOf(nil))
	return &resp, nil
}

// Current returns the operator's open session
func (s *Service) Current(ctx context.Context, companyID, operatorID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessions.FindOpenByOperator(ctx, companyID, operatorID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, session)
}

// Get returns a session
func (s *Service) Get(ctx context.Context, companyID, id uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessions.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, session)
}

// Session returns the domain session, used by closure printing
func (s *Service) Session(ctx context.Context, companyID, id uuid.UUID) (*cash.Session, error) {
	session, err := s.sessions.FindByIDForCompany(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if session.IsOpen() {
		totals, err := s.totals(ctx, companyID, session.ID)
		if err != nil {
			return nil, err
		}
		session.Preview(totals)
	}
	return session, nil
}

// List returns the sessions of a company. Live figures are not computed.
func (s *Service) List(ctx context.Context, companyID uuid.UUID, filter SessionListFilter) ([]SessionResponse, int64, error) {
	sf := cash.SessionFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  "opened_at",
			OrderDir: "desc",
		},
		OperatorID: filter.OperatorID,
		Status:     cash.SessionStatus(filter.Status),
	}
	if filter.From != nil {
		from := shared.StartOfDay(*filter.From)
		sf.From = &from
	}
	if filter.To != nil {
		to := shared.StartOfDay(*filter.To).AddDate(0, 0, 1)
		sf.To = &to
	}
	sessions, total, err := s.sessions.FindAllForCompany(ctx, companyID, sf)
	if err != nil {
		return nil, 0, err
	}
	out := make([]SessionResponse, len(sessions))
	for i := range sessions {
		out[i] = ToSessionResponse(&sessions[i], TotalsOf(nil))
	}
	return out, total, nil
}

// AddMovement registers a supply or withdrawal in an open session
func (s *Service) AddMovement(ctx context.Context, companyID, userID, id uuid.UUID, req MovementRequest) (*SessionResponse, error) {
	var (
		session *cash.Session
		totals  cash.SaleTotals
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.sessions.FindByIDForCompany(ctx, companyID, id)
		if err != nil {
			return err
		}
		totals, err = s.totals(ctx, companyID, session.ID)
		if err != nil {
			return err
		}
		movement, err := session.AddMovement(cash.MovementType(req.Type), req.Amount, req.Reason, userID, totals)
		if err != nil {
			return err
		}
		return s.sessions.AddMovement(ctx, session, movement)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Cash movement registered",
		zap.String("session_id", session.ID.String()),
		zap.String("type", req.Type),
		zap.String("amount", req.Amount.StringFixed(2)))
	resp := ToSessionResponse(session, totals)
	return &resp, nil
}

// Close counts the drawer and closes the session with a summary by payment method
func (s *Service) Close(ctx context.Context, companyID, userID, id uuid.UUID, req CloseSessionRequest) (*SessionResponse, error) {
	var session *cash.Session
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.sessions.FindByIDForCompany(ctx, companyID, id)
		if err != nil {
			return err
		}
		totals, err := s.totals(ctx, companyID, session.ID)
		if err != nil {
			return err
		}
		if err := session.Close(userID, req.CountedBalance, req.Notes, totals); err != nil {
			return err
		}
		return s.sessions.Save(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, session)
	s.logger.Info("Cash session closed",
		zap.String("session_id", session.ID.String()),
		zap.String("expected", session.ExpectedBalance.StringFixed(2)),
		zap.String("counted", session.CountedBalance.StringFixed(2)),
		zap.String("difference", session.Difference.StringFixed(2)))
	resp := ToSessionResponse(session, cash.SaleTotals{})
	return &resp, nil
}

// CountOpen returns the number of open sessions of a company
func (s *Service) CountOpen(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return s.sessions.CountOpen(ctx, companyID)
}

func (s *Service) respond(ctx context.Context, session *cash.Session) (*SessionResponse, error) {
	totals := TotalsOf(nil)
	if session.IsOpen() {
		var err error
		totals, err = s.totals(ctx, session.CompanyID, session.ID)
		if err != nil {
			return nil, err
		}
	}
	resp := ToSessionResponse(session, totals)
	return &resp, nil
}

func (s *Service) totals(ctx context.Context, companyID, sessionID uuid.UUID) (cash.SaleTotals, error) {
	sales, err := s.sales.FindCompletedBySession(ctx, companyID, sessionID)
	if err != nil {
		return cash.SaleTotals{}, err
	}
	return TotalsOf(sales), nil
}

func (s *Service) publish(ctx context.Context, session *cash.Session) {
	if err := shared.PublishAndClear(ctx, s.publisher, session); err != nil {
		s.logger.Warn("Failed to publish cash session events", zap.String("session_id", session.ID.String()), zap.Error(err))
	}
}
