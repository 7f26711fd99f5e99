package policy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// File is the optional YAML policy seed:
//
//	global_timeout: 10m
//	domain_rules:
//	  - domain: news.example
//	    minutes: 2
//	exemptions:
//	  - mail.google.com
type File struct {
	GlobalTimeout string     `yaml:"global_timeout"`
	DomainRules   []FileRule `yaml:"domain_rules"`
	Exemptions    []string   `yaml:"exemptions"`
}

// FileRule is one domain rule in a policy file
type FileRule struct {
	Domain  string `yaml:"domain"`
	Minutes int    `yaml:"minutes"`
}

// ReadFile parses a policy file
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile parses policy YAML
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return &f, nil
}

// settingsBody converts the file's settings section to an update.
// Absent sections stay nil so they leave stored values untouched.
func (f *File) settingsBody() (types.SettingsBody, error) {
	var body types.SettingsBody
	if f.GlobalTimeout != "" {
		d, err := time.ParseDuration(f.GlobalTimeout)
		if err != nil {
			return body, fmt.Errorf("%w: global_timeout: %v", ErrInvalidSettings, err)
		}
		ms := d.Milliseconds()
		body.GlobalTimeout = &ms
	}
	if f.DomainRules != nil {
		body.DomainRules = make([]types.DomainRuleBody, 0, len(f.DomainRules))
		for _, r := range f.DomainRules {
			body.DomainRules = append(body.DomainRules, types.DomainRuleBody{Domain: r.Domain, Minutes: r.Minutes})
		}
	}
	return body, nil
}

// ImportMode decides how a policy file meets values already in the store
type ImportMode int

const (
	// Override replaces stored sections with the file's. Used while the
	// file is watched, where the file is the source of truth.
	Override ImportMode = iota
	// SeedMissing writes only sections that have never been stored, so
	// edits made through the API survive a restart.
	SeedMissing
)

// String returns the mode name used in logs
func (m ImportMode) String() string {
	if m == SeedMissing {
		return "seed"
	}
	return "override"
}

type pendingWrite struct {
	key   string
	value []byte
}

// previous is a key's value before an import touched it
type previous struct {
	key    string
	value  []byte
	exists bool
}

// Import writes the file's contents into the store. The whole file is
// validated before anything is written, and a failed write rolls back the
// sections already written.
func (s *Service) Import(ctx context.Context, f *File, mode ImportMode) error {
	body, err := f.settingsBody()
	if err != nil {
		return err
	}
	update, err := s.validateUpdate(body)
	if err != nil {
		return err
	}
	var exemptions []string
	if f.Exemptions != nil {
		if exemptions, err = s.normalizeExemptions(f.Exemptions); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	writeSettings := body.GlobalTimeout != nil || body.DomainRules != nil
	writeExemptions := f.Exemptions != nil
	if mode == SeedMissing {
		if writeSettings, err = s.writable(ctx, writeSettings, SettingsKey); err != nil {
			return err
		}
		if writeExemptions, err = s.writable(ctx, writeExemptions, WhitelistKey); err != nil {
			return err
		}
	}

	var writes []pendingWrite
	if writeSettings {
		current, err := s.Settings(ctx)
		if err != nil {
			return err
		}
		data, err := sonic.Marshal(s.applyUpdate(current, update).record())
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		writes = append(writes, pendingWrite{key: SettingsKey, value: data})
	}
	if writeExemptions {
		data, err := sonic.Marshal(exemptions)
		if err != nil {
			return fmt.Errorf("encode exemptions: %w", err)
		}
		writes = append(writes, pendingWrite{key: WhitelistKey, value: data})
	}
	return s.writeAll(ctx, writes)
}

// writable reports whether a section should be written in SeedMissing mode
func (s *Service) writable(ctx context.Context, wanted bool, key string) (bool, error) {
	if !wanted {
		return false, nil
	}
	_, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return true, nil
	case err != nil:
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	s.logger.Debug("policy file section skipped, already stored", zap.String("key", key))
	return false, nil
}

// writeAll applies writes in order and restores earlier keys if one fails
func (s *Service) writeAll(ctx context.Context, writes []pendingWrite) error {
	done := make([]previous, 0, len(writes))

	for _, w := range writes {
		old, getErr := s.store.Get(ctx, w.key)
		if getErr != nil && !errors.Is(getErr, kv.ErrNotFound) {
			s.rollback(ctx, done)
			return fmt.Errorf("read %s: %w", w.key, getErr)
		}
		if err := s.store.Set(ctx, w.key, w.value); err != nil {
			s.rollback(ctx, done)
			return fmt.Errorf("save %s: %w", w.key, err)
		}
		done = append(done, previous{key: w.key, value: old, exists: getErr == nil})
	}
	return nil
}

func (s *Service) rollback(ctx context.Context, done []previous) {
	for i := len(done) - 1; i >= 0; i-- {
		p := done[i]
		var err error
		if p.exists {
			err = s.store.Set(ctx, p.key, p.value)
		} else {
			err = s.store.Delete(ctx, p.key)
		}
		if err != nil {
			s.logger.Error("policy import rollback failed", zap.String("key", p.key), zap.Error(err))
		}
	}
}

// ImportFile reads and imports path
func (s *Service) ImportFile(ctx context.Context, path string, mode ImportMode) error {
	f, err := ReadFile(path)
	if err != nil {
		return err
	}
	if err := s.Import(ctx, f, mode); err != nil {
		return err
	}
	s.logger.Info("policy file imported",
		zap.String("path", path),
		zap.Stringer("mode", mode),
		zap.Int("domain_rules", len(f.DomainRules)),
		zap.Int("exemptions", len(f.Exemptions)))
	return nil
}
