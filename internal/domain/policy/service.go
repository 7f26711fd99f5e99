package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/utils"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Storage keys
const (
	SettingsKey  = "settings"
	WhitelistKey = "whitelist"
)

// ErrInvalidSettings wraps validation failures of a settings update
var ErrInvalidSettings = errors.New("invalid settings")

// settingsRecord is the persisted settings blob
type settingsRecord struct {
	GlobalTimeout int64        `json:"globalTimeout"`
	DomainRules   []ruleRecord `json:"domainRules"`
}

type ruleRecord struct {
	Domain  string `json:"domain" validate:"required,hostname_rfc1123"`
	Minutes int    `json:"minutes" validate:"min=1,max=10080"`
}

type settingsUpdate struct {
	GlobalTimeout *int64       `validate:"omitempty,min=60000"`
	DomainRules   []ruleRecord `validate:"dive"`
}

// Settings is the decoded, validated settings blob
type Settings struct {
	GlobalTimeout time.Duration
	Rules         []Rule
}

// Body converts settings to their wire form
func (s Settings) Body() types.SettingsBody {
	ms := s.GlobalTimeout.Milliseconds()
	rules := make([]types.DomainRuleBody, 0, len(s.Rules))
	for _, r := range s.Rules {
		rules = append(rules, types.DomainRuleBody{Domain: r.Domain, Minutes: int(r.Timeout / time.Minute)})
	}
	return types.SettingsBody{GlobalTimeout: &ms, DomainRules: rules}
}

// Service reads and edits the persisted policy. Nothing is cached: every
// Load reads the store so edits apply on the next scan.
type Service struct {
	store    kv.Store
	validate *validator.Validate
	logger   *zap.Logger

	// serializes read-modify-write of the exemption list and settings
	mu sync.Mutex
}

// NewService creates a policy service over store
func NewService(store kv.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Load returns the current policy. Malformed blobs fall back to defaults;
// only a store failure is returned as an error.
func (s *Service) Load(ctx context.Context) (Policy, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return Policy{}, err
	}
	exemptions, err := s.Exemptions(ctx)
	if err != nil {
		return Policy{}, err
	}
	return Policy{
		GlobalTimeout: settings.GlobalTimeout,
		Rules:         settings.Rules,
		Exemptions:    exemptions,
	}, nil
}

// Settings returns the persisted settings with defaults applied
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	defaults := Settings{GlobalTimeout: DefaultGlobalTimeout}

	var rec settingsRecord
	err := kv.GetJSON(ctx, s.store, SettingsKey, &rec)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return defaults, nil
	case isStoreError(err):
		return Settings{}, fmt.Errorf("load settings: %w", err)
	case err != nil:
		s.logger.Warn("settings blob malformed, using defaults", zap.Error(err))
		return defaults, nil
	}

	out := defaults
	if rec.GlobalTimeout > 0 {
		out.GlobalTimeout = time.Duration(rec.GlobalTimeout) * time.Millisecond
	} else {
		s.logger.Warn("non-positive global timeout, using default", zap.Int64("global_timeout_ms", rec.GlobalTimeout))
	}

	rules, ok := s.decodeRules(rec.DomainRules)
	if !ok {
		s.logger.Warn("domain rules malformed, using empty rule list", zap.Int("rules", len(rec.DomainRules)))
	}
	out.Rules = rules
	return out, nil
}

// decodeRules converts persisted rules. Any invalid rule discards the list.
func (s *Service) decodeRules(records []ruleRecord) ([]Rule, bool) {
	rules := make([]Rule, 0, len(records))
	for _, r := range records {
		if err := s.validate.Struct(r); err != nil {
			return nil, false
		}
		rules = append(rules, Rule{Domain: r.Domain, Timeout: time.Duration(r.Minutes) * time.Minute})
	}
	return rules, true
}

// UpdateSettings applies a partial update. Nil fields are left unchanged.
func (s *Service) UpdateSettings(ctx context.Context, body types.SettingsBody) (Settings, error) {
	update, err := s.validateUpdate(body)
	if err != nil {
		return Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Settings(ctx)
	if err != nil {
		return Settings{}, err
	}
	current = s.applyUpdate(current, update)
	if err := kv.SetJSON(ctx, s.store, SettingsKey, current.record()); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}

	s.logger.Info("settings updated",
		zap.Duration("global_timeout", current.GlobalTimeout),
		zap.Int("domain_rules", len(current.Rules)))
	return current, nil
}

// validateUpdate normalizes rule domains and checks every field
func (s *Service) validateUpdate(body types.SettingsBody) (settingsUpdate, error) {
	update := settingsUpdate{GlobalTimeout: body.GlobalTimeout}
	if body.DomainRules != nil {
		update.DomainRules = make([]ruleRecord, 0, len(body.DomainRules))
		for _, r := range body.DomainRules {
			update.DomainRules = append(update.DomainRules, ruleRecord{
				Domain:  ExtractDomain(r.Domain),
				Minutes: r.Minutes,
			})
		}
	}
	if err := s.validate.Struct(update); err != nil {
		return settingsUpdate{}, fmt.Errorf("%w: %s", ErrInvalidSettings, describe(err))
	}
	return update, nil
}

func (s *Service) applyUpdate(current Settings, update settingsUpdate) Settings {
	if update.GlobalTimeout != nil {
		current.GlobalTimeout = time.Duration(*update.GlobalTimeout) * time.Millisecond
	}
	if update.DomainRules != nil {
		current.Rules, _ = s.decodeRules(update.DomainRules)
	}
	return current
}

func (s Settings) record() settingsRecord {
	rec := settingsRecord{
		GlobalTimeout: s.GlobalTimeout.Milliseconds(),
		DomainRules:   make([]ruleRecord, 0, len(s.Rules)),
	}
	for _, r := range s.Rules {
		rec.DomainRules = append(rec.DomainRules, ruleRecord{Domain: r.Domain, Minutes: int(r.Timeout / time.Minute)})
	}
	return rec
}

// Exemptions returns the exemption list, or the built-in list when none is stored
func (s *Service) Exemptions(ctx context.Context) ([]string, error) {
	var list []string
	err := kv.GetJSON(ctx, s.store, WhitelistKey, &list)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return DefaultExemptions(), nil
	case isStoreError(err):
		return nil, fmt.Errorf("load exemptions: %w", err)
	case err != nil:
		s.logger.Warn("exemption list malformed, using defaults", zap.Error(err))
		return DefaultExemptions(), nil
	}
	if list == nil {
		// stored as JSON null
		return DefaultExemptions(), nil
	}
	return normalizeList(list), nil
}

// AddExemption adds a domain, or the hostname of a URL, to the list
func (s *Service) AddExemption(ctx context.Context, input string) ([]string, error) {
	if err := utils.ValidateDomain(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	domain, err := s.exemptionDomain(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.Exemptions(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range list {
		if e == domain {
			return list, nil
		}
	}
	list = append(list, domain)
	if err := s.saveExemptions(ctx, list); err != nil {
		return nil, err
	}
	s.logger.Info("exemption added", zap.String("domain", domain))
	return list, nil
}

// RemoveExemption removes a domain, or the hostname of a URL, from the list
func (s *Service) RemoveExemption(ctx context.Context, input string) ([]string, error) {
	domain := ExtractDomain(input)

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.Exemptions(ctx)
	if err != nil {
		return nil, err
	}
	kept := list[:0]
	removed := false
	for _, e := range list {
		if e == domain {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return kept, nil
	}
	if err := s.saveExemptions(ctx, kept); err != nil {
		return nil, err
	}
	s.logger.Info("exemption removed", zap.String("domain", domain))
	return kept, nil
}

// ResetExemptions restores the built-in list
func (s *Service) ResetExemptions(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := DefaultExemptions()
	if err := s.saveExemptions(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// ReplaceExemptions stores list as the exemption list. Blank entries are
// dropped; any entry that is not a hostname rejects the whole list.
func (s *Service) ReplaceExemptions(ctx context.Context, list []string) ([]string, error) {
	normalized, err := s.normalizeExemptions(list)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveExemptions(ctx, normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// exemptionDomain extracts the hostname an exemption entry stands for
func (s *Service) exemptionDomain(input string) (string, error) {
	domain := ExtractDomain(input)
	if err := s.validate.Var(domain, "required,hostname_rfc1123"); err != nil {
		return "", fmt.Errorf("%w: exemption %q is not a hostname", ErrInvalidSettings, input)
	}
	return domain, nil
}

func (s *Service) normalizeExemptions(list []string) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, e := range list {
		if strings.TrimSpace(e) == "" {
			continue
		}
		domain, err := s.exemptionDomain(e)
		if err != nil {
			return nil, err
		}
		out = append(out, domain)
	}
	return normalizeList(out), nil
}

func (s *Service) saveExemptions(ctx context.Context, list []string) error {
	if list == nil {
		list = []string{}
	}
	if err := kv.SetJSON(ctx, s.store, WhitelistKey, list); err != nil {
		return fmt.Errorf("save exemptions: %w", err)
	}
	return nil
}

// normalizeList lowercases, trims and de-duplicates, keeping order
func normalizeList(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, e := range list {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// isStoreError separates backend failures from decode failures
func isStoreError(err error) bool {
	if err == nil || errors.Is(err, kv.ErrNotFound) {
		return false
	}
	return !errors.Is(err, kv.ErrDecode)
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
