// Package sca implements the strong-customer-authentication workflow: the
// status transition engine, its collaborator contracts and the redirect
// callback tokens.
package sca

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
	"github.com/adorsys/xs2a-consent-engine/internal/obs"
)

// PsuDirectory is the external directory holding PSU credentials and SCA
// methods. Credential checks happen there; the engine only consumes the
// verdict, which keeps the transition function approach-agnostic.
type PsuDirectory interface {
	// VerifyCredential checks a PSU password.
	VerifyCredential(ctx context.Context, psuID, password string) (bool, error)
	// ListScaMethods returns the SCA methods available to a PSU.
	ListScaMethods(ctx context.Context, psuID string) ([]model.AuthenticationObject, error)
	// VerifyAuthenticationData checks OTP/signature evidence for a method.
	VerifyAuthenticationData(ctx context.Context, psuID, methodID, data string) (bool, error)
}

// ChallengeDispatcher delivers an SCA challenge to the PSU's device or
// browser. Dispatch happens at most once per selected method.
type ChallengeDispatcher interface {
	Dispatch(ctx context.Context, a *model.Authorisation) error
}

// RetryPolicy decides when repeated authentication failures escalate to a
// terminal FAILED transition. The budget belongs to the caller, not the
// engine.
type RetryPolicy interface {
	Exhausted(failedAttempts int) bool
}

// FixedRetries is a RetryPolicy allowing a fixed number of failed attempts.
type FixedRetries int

// Exhausted reports whether the attempt count has used up the budget.
func (f FixedRetries) Exhausted(failedAttempts int) bool { return failedAttempts >= int(f) }

// Config carries the immutable engine settings read at startup.
type Config struct {
	// Expiry holds the confirmation period per authorisation type. A type
	// without an entry falls back to DefaultExpiry.
	Expiry map[model.AuthorisationType]time.Duration

	// DefaultExpiry applies when Expiry has no entry for a type.
	DefaultExpiry time.Duration

	// AutoSelectSoleMethod skips the explicit method-selection step when the
	// PSU has exactly one SCA method (embedded approach optimisation).
	AutoSelectSoleMethod bool
}

// ExpiryFor returns the confirmation period for an authorisation type.
func (c Config) ExpiryFor(t model.AuthorisationType) time.Duration {
	if d, ok := c.Expiry[t]; ok {
		return d
	}
	return c.DefaultExpiry
}

// Engine applies authorisation update events. It mutates in-memory records
// only; persisting the result atomically is the caller's job.
type Engine struct {
	dir        PsuDirectory
	dispatcher ChallengeDispatcher
	retry      RetryPolicy
	cfg        Config
	log        *zap.Logger
	now        func() time.Time
}

// NewEngine constructs the engine with its collaborators.
func NewEngine(dir PsuDirectory, dispatcher ChallengeDispatcher, retry RetryPolicy, cfg Config, log *zap.Logger) *Engine {
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = 24 * time.Hour
	}
	return &Engine{dir: dir, dispatcher: dispatcher, retry: retry, cfg: cfg, log: log, now: time.Now}
}

// NewAuthorisation starts a workflow in RECEIVED, the sole initial state.
func (e *Engine) NewAuthorisation(parentID string, t model.AuthorisationType, psu model.PsuIDData) (*model.Authorisation, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := e.now()
	return &model.Authorisation{
		ID:         id,
		ParentID:   parentID,
		Type:       t,
		Status:     model.StatusReceived,
		PsuData:    psu,
		ReceivedAt: now,
		UpdatedAt:  now,
	}, nil
}

// Expired reports whether the authorisation outlived its confirmation
// period. Expiry is evaluated lazily on access; there is no timer.
func (e *Engine) Expired(a *model.Authorisation) bool {
	if a.Status.IsFinal() {
		return false
	}
	return e.now().After(a.ReceivedAt.Add(e.cfg.ExpiryFor(a.Type)))
}

// Apply processes one update event against the authorisation. The returned
// bool reports whether the record changed and must be persisted; the caller
// saves it even when err is non-nil (failure counters and terminal failure
// transitions are state). The record itself is never left half-updated: on a
// pure validation error it is untouched.
func (e *Engine) Apply(ctx context.Context, a *model.Authorisation, ev Event) (bool, error) {
	kind, err := ev.kind()
	if err != nil {
		return false, err
	}

	if a.Status.IsFinal() {
		return false, fmt.Errorf("%w: authorisation already %s", errs.ErrInvalidTransition, a.Status)
	}
	if e.Expired(a) {
		e.move(a, model.StatusFailed)
		return true, fmt.Errorf("%w: confirmation period for %s elapsed", errs.ErrExpired, a.Type)
	}

	switch kind {
	case eventCancel:
		e.move(a, model.StatusFailed)
		return true, nil
	case eventIdentify:
		return e.identify(a, *ev.PsuData)
	case eventAuthenticate:
		return e.authenticate(ctx, a, *ev.Password)
	case eventSelectMethod:
		return e.selectMethod(ctx, a, *ev.MethodID)
	case eventVerify:
		return e.verify(ctx, a, *ev.AuthenticationData)
	}
	return false, fmt.Errorf("%w: unknown event", errs.ErrFormat)
}

// identify moves RECEIVED to PSU_IDENTIFIED. A missing identifier is a
// format error, not a state change.
func (e *Engine) identify(a *model.Authorisation, psu model.PsuIDData) (bool, error) {
	if psu.IsEmpty() {
		return false, fmt.Errorf("%w: empty PSU identifier", errs.ErrFormat)
	}
	if !a.Status.CanTransitionTo(model.StatusPsuIdentified) {
		return false, e.transitionError(a, model.StatusPsuIdentified)
	}
	a.PsuData = psu
	e.move(a, model.StatusPsuIdentified)
	return true, nil
}

// authenticate moves PSU_IDENTIFIED to PSU_AUTHENTICATED on a successful
// credential check. Failures stay in place until the retry budget runs out.
func (e *Engine) authenticate(ctx context.Context, a *model.Authorisation, password string) (bool, error) {
	if !a.Status.CanTransitionTo(model.StatusPsuAuthenticated) {
		return false, e.transitionError(a, model.StatusPsuAuthenticated)
	}
	ok, err := e.dir.VerifyCredential(ctx, a.PsuData.PsuID, password)
	if err != nil {
		return false, fmt.Errorf("psu directory: %w", err)
	}
	if !ok {
		return e.failAttempt(a)
	}
	a.FailedAttempts = 0
	e.move(a, model.StatusPsuAuthenticated)

	if e.cfg.AutoSelectSoleMethod {
		if changed, err := e.autoSelect(ctx, a); err != nil {
			return true, err
		} else if changed {
			return true, nil
		}
	}
	return true, nil
}

// autoSelect picks the sole available SCA method without an explicit PSU
// action. The skip is deliberate, never incidental: it only happens when
// the option is on and exactly one method exists.
func (e *Engine) autoSelect(ctx context.Context, a *model.Authorisation) (bool, error) {
	methods, err := e.dir.ListScaMethods(ctx, a.PsuData.PsuID)
	if err != nil {
		return false, fmt.Errorf("psu directory: %w", err)
	}
	if len(methods) != 1 {
		return false, nil
	}
	e.applyMethod(a, methods[0])
	e.log.Info("sole sca method auto-selected",
		zap.String("authorisationId", a.ID.String()),
		zap.String("methodId", methods[0].MethodID),
	)
	return true, nil
}

// selectMethod moves PSU_AUTHENTICATED to SCA_METHOD_SELECTED for a method
// the PSU actually has.
func (e *Engine) selectMethod(ctx context.Context, a *model.Authorisation, methodID string) (bool, error) {
	if methodID == "" {
		return false, fmt.Errorf("%w: empty authentication method id", errs.ErrFormat)
	}
	if !a.Status.CanTransitionTo(model.StatusScaMethodSelected) {
		return false, e.transitionError(a, model.StatusScaMethodSelected)
	}
	methods, err := e.dir.ListScaMethods(ctx, a.PsuData.PsuID)
	if err != nil {
		return false, fmt.Errorf("psu directory: %w", err)
	}
	for _, m := range methods {
		if m.MethodID == methodID {
			e.applyMethod(a, m)
			return true, nil
		}
	}
	return false, fmt.Errorf("%w: method %q not available to PSU", errs.ErrFormat, methodID)
}

func (e *Engine) applyMethod(a *model.Authorisation, m model.AuthenticationObject) {
	a.MethodID = m.MethodID
	a.ChallengeIssued = false
	if m.Decoupled {
		a.ChosenApproach = model.ApproachDecoupled
	}
	e.move(a, model.StatusScaMethodSelected)
}

// StartChallenge moves SCA_METHOD_SELECTED to STARTED, dispatching the
// challenge exactly once. Re-entering with the same method already issued
// is a no-op, not a duplicate dispatch.
func (e *Engine) StartChallenge(ctx context.Context, a *model.Authorisation) (bool, error) {
	if a.Status == model.StatusStarted && a.ChallengeIssued {
		return false, nil
	}
	if !a.Status.CanTransitionTo(model.StatusStarted) {
		return false, e.transitionError(a, model.StatusStarted)
	}
	if e.dispatcher != nil && !a.ChallengeIssued {
		if err := e.dispatcher.Dispatch(ctx, a); err != nil {
			return false, fmt.Errorf("dispatch challenge: %w", err)
		}
	}
	a.ChallengeIssued = true
	e.move(a, model.StatusStarted)
	return true, nil
}

// verify checks SCA authentication data against the chosen method; this is
// the only path into FINALISED.
func (e *Engine) verify(ctx context.Context, a *model.Authorisation, data string) (bool, error) {
	if data == "" {
		return false, fmt.Errorf("%w: empty sca authentication data", errs.ErrFormat)
	}
	if !a.Status.CanTransitionTo(model.StatusFinalised) {
		return false, e.transitionError(a, model.StatusFinalised)
	}
	ok, err := e.dir.VerifyAuthenticationData(ctx, a.PsuData.PsuID, a.MethodID, data)
	if err != nil {
		return false, fmt.Errorf("psu directory: %w", err)
	}
	return e.ApplyVerificationResult(a, ok)
}

// ApplyVerificationResult commits a verification verdict regardless of which
// approach produced it: the embedded flow passes the directory's answer, the
// redirect flow the callback outcome, the decoupled flow the device status.
func (e *Engine) ApplyVerificationResult(a *model.Authorisation, ok bool) (bool, error) {
	if !a.Status.CanTransitionTo(model.StatusFinalised) {
		return false, e.transitionError(a, model.StatusFinalised)
	}
	if !ok {
		return e.failAttempt(a)
	}
	a.FailedAttempts = 0
	e.move(a, model.StatusFinalised)
	return true, nil
}

// Exempt ends the workflow without SCA. Only RECEIVED and PSU_AUTHENTICATED
// qualify.
func (e *Engine) Exempt(a *model.Authorisation) error {
	if !a.Status.CanTransitionTo(model.StatusExempted) {
		return e.transitionError(a, model.StatusExempted)
	}
	e.move(a, model.StatusExempted)
	return nil
}

// failAttempt books a failed credential/OTP check and escalates to FAILED
// once the retry budget is exhausted. Either way the attempt counter is
// state and must be persisted.
func (e *Engine) failAttempt(a *model.Authorisation) (bool, error) {
	a.FailedAttempts++
	a.UpdatedAt = e.now()
	if e.retry.Exhausted(a.FailedAttempts) {
		e.move(a, model.StatusFailed)
		return true, fmt.Errorf("%w: retry budget exhausted after %d attempts", errs.ErrBadCredential, a.FailedAttempts)
	}
	return true, errs.ErrBadCredential
}

func (e *Engine) move(a *model.Authorisation, next model.ScaStatus) {
	obs.ObserveTransition(a.Type, a.Status, next)
	e.log.Info("sca transition",
		zap.String("authorisationId", a.ID.String()),
		zap.String("type", string(a.Type)),
		zap.String("from", string(a.Status)),
		zap.String("to", string(next)),
	)
	a.Status = next
	a.UpdatedAt = e.now()
}

func (e *Engine) transitionError(a *model.Authorisation, next model.ScaStatus) error {
	return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, a.Status, next)
}
