// Package service implements the license and credit transactions behind the
// proxy endpoints: validation with one-time device binding, the relayed send
// with its credit debit, and credit reads and adjustments.
//
// License state is read from the store on every call. Nothing is cached
// between requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf16"

	"license-relay-proxy/internal/model"
	"license-relay-proxy/internal/sink"
	"license-relay-proxy/internal/store"
	"license-relay-proxy/internal/usagelog"

	"google.golang.org/api/googleapi"
)

// Side-effect names used in Outcome values.
const (
	EffectBindDevice  = "bind_device"
	EffectDebitCredit = "debit_credit"
	EffectUsageLog    = "usage_log"
)

type LicenseService struct {
	licenses store.LicenseStore
	sink     sink.MessageSink
	usage    usagelog.Writer
	logger   *slog.Logger
	now      func() time.Time

	rejectNonPositiveCredits bool
}

type Option func(*LicenseService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *LicenseService) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *LicenseService) { s.now = now }
}

// WithNonPositiveCreditGuard makes AddCredits reject amounts <= 0.
func WithNonPositiveCreditGuard(enabled bool) Option {
	return func(s *LicenseService) { s.rejectNonPositiveCredits = enabled }
}

func NewLicenseService(licenses store.LicenseStore, messages sink.MessageSink, usage usagelog.Writer, opts ...Option) *LicenseService {
	s := &LicenseService{
		licenses: licenses,
		sink:     messages,
		usage:    usage,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LicenseStatus is the caller-visible projection of a license.
type LicenseStatus struct {
	Credits  int64
	IsActive bool
}

type ValidateResult struct {
	LicenseStatus
	Binding Outcome
}

type SendRequest struct {
	LicenseKey string
	AuthToken  string
	ProjectID  string
	Content    string
	Files      []string
}

type SendResult struct {
	MessageID        string
	CreditsRemaining int64
	Debit            Outcome
	UsageLog         Outcome
}

type AddCreditsRequest struct {
	LicenseKey string
	// Amount is required; nil means the field was absent.
	Amount *int64
}

// lookup maps every store failure to ErrLicenseNotFound. Errors other than a
// missing row are logged so store outages stay visible.
func (s *LicenseService) lookup(ctx context.Context, licenseKey string) (*model.License, error) {
	license, err := s.licenses.Get(ctx, licenseKey)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.ErrorContext(ctx, "license lookup failed", "license_key", licenseKey, "error", err)
		}
		return nil, ErrLicenseNotFound
	}
	return license, nil
}

func (s *LicenseService) lookupActive(ctx context.Context, licenseKey string) (*model.License, error) {
	license, err := s.lookup(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	if !license.IsActive {
		return nil, ErrLicenseInactive
	}
	return license, nil
}

// ValidateLicense checks that the license exists, is active, and belongs to
// deviceID. An unbound license is bound to the first device presented.
func (s *LicenseService) ValidateLicense(ctx context.Context, licenseKey, deviceID string) (*ValidateResult, error) {
	if licenseKey == "" {
		return nil, badRequest("license key not provided")
	}

	license, err := s.lookupActive(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	if license.IsBound() && *license.BoundDevice != deviceID {
		return nil, ErrDeviceMismatch
	}

	result := &ValidateResult{
		LicenseStatus: LicenseStatus{Credits: license.Credits, IsActive: license.IsActive},
	}
	if license.IsBound() || deviceID == "" {
		return result, nil
	}

	bound, err := s.licenses.BindDevice(context.WithoutCancel(ctx), licenseKey, deviceID)
	switch {
	case err != nil:
		result.Binding = failed(EffectBindDevice, err)
	case bound:
		result.Binding = succeeded(EffectBindDevice, deviceID)
	default:
		// Another request bound the license between our read and write.
		current, lookupErr := s.licenses.Get(ctx, licenseKey)
		if lookupErr == nil && current.IsBound() && *current.BoundDevice != deviceID {
			return nil, ErrDeviceMismatch
		}
		result.Binding = skipped(EffectBindDevice, "license already bound")
	}
	return result, nil
}

// SendMessage relays one message for the license holder and debits one credit
// once the sink has accepted it. A sink failure leaves the balance untouched
// and writes no usage entry.
func (s *LicenseService) SendMessage(ctx context.Context, req SendRequest) (*SendResult, error) {
	if req.LicenseKey == "" || req.ProjectID == "" || req.Content == "" {
		return nil, badRequest("incomplete request")
	}
	if req.AuthToken == "" {
		return nil, badRequest("token not provided")
	}

	license, err := s.lookupActive(ctx, req.LicenseKey)
	if err != nil {
		return nil, err
	}
	if license.Credits <= 0 {
		return nil, ErrInsufficientCredits
	}

	msg := model.OutboundMessage{
		ProjectID: req.ProjectID,
		Content:   req.Content,
		Role:      model.RoleUser,
		Timestamp: s.now(),
		Files:     req.Files,
	}
	messageID, err := s.sink.Append(ctx, msg, req.AuthToken)
	if err != nil {
		return nil, upstreamError(err)
	}

	// The message is delivered; accounting must not be cut short by the caller
	// going away.
	effectCtx := context.WithoutCancel(ctx)
	result := &SendResult{
		MessageID:        messageID,
		CreditsRemaining: license.Credits - 1,
	}

	debited, err := s.licenses.DebitCredit(effectCtx, req.LicenseKey)
	switch {
	case err != nil:
		result.Debit = failed(EffectDebitCredit, err)
	case debited:
		result.Debit = succeeded(EffectDebitCredit, fmt.Sprintf("credits_remaining=%d", result.CreditsRemaining))
	default:
		result.Debit = skipped(EffectDebitCredit, "balance already at zero")
	}

	entry := &model.UsageLog{
		LicenseKey:    req.LicenseKey,
		ProjectID:     req.ProjectID,
		MessageLength: messageLength(req.Content),
		CreatedAt:     s.now(),
	}
	if err := s.usage.Append(effectCtx, entry); err != nil {
		result.UsageLog = failed(EffectUsageLog, err)
	} else {
		result.UsageLog = succeeded(EffectUsageLog, s.usage.Backend())
	}

	return result, nil
}

// GetCredits returns the stored balance and active flag without side effects.
func (s *LicenseService) GetCredits(ctx context.Context, licenseKey string) (*LicenseStatus, error) {
	if licenseKey == "" {
		return nil, badRequest("license key not provided")
	}
	license, err := s.lookup(ctx, licenseKey)
	if err != nil {
		return nil, err
	}
	return &LicenseStatus{Credits: license.Credits, IsActive: license.IsActive}, nil
}

// AddCredits adjusts the balance by the requested amount and returns the new
// balance. Amounts are taken as given unless the non-positive guard is on.
func (s *LicenseService) AddCredits(ctx context.Context, req AddCreditsRequest) (int64, error) {
	if req.LicenseKey == "" || req.Amount == nil {
		return 0, badRequest("incomplete request")
	}
	if s.rejectNonPositiveCredits && *req.Amount <= 0 {
		return 0, badRequest("credits must be positive")
	}

	newCredits, err := s.licenses.AddCredits(ctx, req.LicenseKey, *req.Amount)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrLicenseNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return newCredits, nil
}

// messageLength counts UTF-16 code units so usage figures line up with
// existing usage_logs rows written by JavaScript clients.
func messageLength(content string) int {
	return len(utf16.Encode([]rune(content)))
}

func upstreamError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &UpstreamError{Status: gerr.Code, Body: gerr.Body, Err: err}
	}
	return &UpstreamError{Err: err}
}
