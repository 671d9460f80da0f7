// Package service contains the application services orchestrating the
// authorisation workflow.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/adorsys/xs2a-consent-engine/internal/checksum"
	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
	"github.com/adorsys/xs2a-consent-engine/internal/repository"
	"github.com/adorsys/xs2a-consent-engine/internal/sca"
	"github.com/adorsys/xs2a-consent-engine/internal/stoplist"
)

// TppContext identifies the requesting TPP on this service instance.
type TppContext struct {
	AuthorisationNumber string
	InstanceID          string
}

// ConsentAccessSource exposes a consent's current account-access view and its
// stored checksum for integrity verification. The consent entity itself lives
// with an external collaborator.
type ConsentAccessSource interface {
	AccessView(ctx context.Context, parentID string) (checksum.ConsentView, []byte, error)
}

// AuthorisationService is the inbound boundary of the engine.
type AuthorisationService interface {
	// Create starts a new SCA workflow for a consent/payment.
	Create(ctx context.Context, tpp TppContext, parentID string, t model.AuthorisationType, psu model.PsuIDData) (*model.Authorisation, error)
	// Update applies one authorisation update event.
	Update(ctx context.Context, tpp TppContext, id uuid.UUID, ev sca.Event) (*model.Authorisation, error)
	// GetScaStatus returns the current status, booking lazy expiry if due.
	GetScaStatus(ctx context.Context, tpp TppContext, id uuid.UUID) (model.ScaStatus, error)
	// StartChallenge dispatches the SCA challenge for the selected method.
	StartChallenge(ctx context.Context, tpp TppContext, id uuid.UUID) (*model.Authorisation, error)
	// FinaliseRedirect commits the outcome of a redirect callback.
	FinaliseRedirect(ctx context.Context, token string, success bool) (*model.Authorisation, error)
}

// AuthorisationServiceImpl wires the stop-list gate, the engine and the
// repositories. Every inbound call passes the gate before anything else.
type AuthorisationServiceImpl struct {
	gate      *stoplist.Gate
	repo      repository.AuthorisationRepository
	engine    *sca.Engine
	tokens    *sca.RedirectTokens
	access    ConsentAccessSource // optional
	checksums *checksum.Service
	log       *zap.Logger
}

// NewAuthorisationService constructs the orchestration service. access may be
// nil when no consent-integrity collaborator is wired.
func NewAuthorisationService(
	gate *stoplist.Gate,
	repo repository.AuthorisationRepository,
	engine *sca.Engine,
	tokens *sca.RedirectTokens,
	access ConsentAccessSource,
	checksums *checksum.Service,
	log *zap.Logger,
) *AuthorisationServiceImpl {
	return &AuthorisationServiceImpl{
		gate: gate, repo: repo, engine: engine, tokens: tokens,
		access: access, checksums: checksums, log: log,
	}
}

// Create starts a workflow in RECEIVED after the gate admits the TPP.
func (s *AuthorisationServiceImpl) Create(ctx context.Context, tpp TppContext, parentID string, t model.AuthorisationType, psu model.PsuIDData) (*model.Authorisation, error) {
	if err := s.admit(ctx, tpp); err != nil {
		return nil, err
	}
	if parentID == "" {
		return nil, fmt.Errorf("%w: empty parent id", errs.ErrFormat)
	}
	a, err := s.engine.NewAuthorisation(parentID, t, psu)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("authorisation created",
		zap.String("authorisationId", a.ID.String()),
		zap.String("type", string(t)),
	)
	return a, nil
}

// Update applies one event. The record is saved with the version it was read
// at, so a concurrent writer on the same authorisation loses with CONFLICT
// instead of clobbering newer state. State produced alongside an error
// (failure counters, terminal failure) is persisted before the error is
// returned.
func (s *AuthorisationServiceImpl) Update(ctx context.Context, tpp TppContext, id uuid.UUID, ev sca.Event) (*model.Authorisation, error) {
	if err := s.admit(ctx, tpp); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ev.IsVerification() && a.Type == model.AuthorisationConsent {
		if err := s.verifyConsentIntegrity(ctx, a.ParentID); err != nil {
			return nil, err
		}
	}

	expected := a.Ver
	changed, applyErr := s.engine.Apply(ctx, a, ev)
	if changed {
		if saveErr := s.repo.Save(ctx, a, expected); saveErr != nil {
			return nil, saveErr
		}
	}
	return a, applyErr
}

// GetScaStatus reads the current status. An authorisation past its
// confirmation period is moved to FAILED on this read (lazy expiry).
func (s *AuthorisationServiceImpl) GetScaStatus(ctx context.Context, tpp TppContext, id uuid.UUID) (model.ScaStatus, error) {
	if err := s.admit(ctx, tpp); err != nil {
		return "", err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.engine.Expired(a) {
		expected := a.Ver
		changed, applyErr := s.engine.Apply(ctx, a, sca.Event{Cancel: true})
		if changed {
			if err := s.repo.Save(ctx, a, expected); err != nil {
				return "", err
			}
		}
		if applyErr != nil && !errors.Is(applyErr, errs.ErrExpired) {
			return "", applyErr
		}
	}
	return a.Status, nil
}

// StartChallenge moves the workflow to STARTED, dispatching at most once.
func (s *AuthorisationServiceImpl) StartChallenge(ctx context.Context, tpp TppContext, id uuid.UUID) (*model.Authorisation, error) {
	if err := s.admit(ctx, tpp); err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := a.Ver
	changed, err := s.engine.StartChallenge(ctx, a)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := s.repo.Save(ctx, a, expected); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// RedirectToken issues the signed callback token for a started redirect flow.
func (s *AuthorisationServiceImpl) RedirectToken(a *model.Authorisation) (string, error) {
	return s.tokens.Issue(a)
}

// FinaliseRedirect verifies the callback token and commits the verification
// outcome it carries. The callback comes from the bank's own front end, not
// the TPP, so no gate check applies here.
func (s *AuthorisationServiceImpl) FinaliseRedirect(ctx context.Context, token string, success bool) (*model.Authorisation, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := a.Ver
	changed, applyErr := s.engine.ApplyVerificationResult(a, success)
	if changed {
		if saveErr := s.repo.Save(ctx, a, expected); saveErr != nil {
			return nil, saveErr
		}
	}
	return a, applyErr
}

// admit consults the stop list. A blocked TPP short-circuits with the same
// typed outcome regardless of the underlying authorisation state.
func (s *AuthorisationServiceImpl) admit(ctx context.Context, tpp TppContext) error {
	if tpp.AuthorisationNumber == "" {
		return fmt.Errorf("%w: empty tpp authorisation number", errs.ErrFormat)
	}
	blocked, err := s.gate.IsBlocked(ctx, tpp.AuthorisationNumber, tpp.InstanceID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: tpp %s", errs.ErrBlocked, tpp.AuthorisationNumber)
	}
	return nil
}

// verifyConsentIntegrity recomputes the consent checksum before the workflow
// may finalise, catching tampering between TPP-supplied and ASPSP-stored
// account accesses.
func (s *AuthorisationServiceImpl) verifyConsentIntegrity(ctx context.Context, parentID string) error {
	if s.access == nil {
		return nil
	}
	view, stored, err := s.access.AccessView(ctx, parentID)
	if err != nil {
		return fmt.Errorf("consent access view: %w", err)
	}
	if len(stored) == 0 {
		return nil
	}
	if !s.checksums.Verify(view, stored) {
		return fmt.Errorf("%w: consent %s", errs.ErrChecksumMismatch, parentID)
	}
	return nil
}
