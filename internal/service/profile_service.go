package service

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"alcyxob/health-tracker/internal/domain"
)

// ProfileService stores the opaque profile and rules blobs of a tenant.
type ProfileService interface {
	GetProfile(ctx context.Context, tenantID string) (json.RawMessage, error)
	SetProfile(ctx context.Context, tenantID string, profile json.RawMessage) error
	GetRules(ctx context.Context, tenantID string) (json.RawMessage, error)
	SetRules(ctx context.Context, tenantID string, rules json.RawMessage) error
}

type profileService struct {
	Core
}

func NewProfileService(core Core) ProfileService {
	return &profileService{Core: core}
}

func (s *profileService) GetProfile(ctx context.Context, tenantID string) (json.RawMessage, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return orEmptyObject(ds.Profile), nil
}

func (s *profileService) SetProfile(ctx context.Context, tenantID string, profile json.RawMessage) error {
	if err := checkBlob("profile", profile); err != nil {
		return err
	}
	return s.setBlob(ctx, tenantID, "profile", func(ds *domain.Dataset) { ds.Profile = profile })
}

func (s *profileService) GetRules(ctx context.Context, tenantID string) (json.RawMessage, error) {
	if err := checkTenant(tenantID); err != nil {
		return nil, err
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return orEmptyObject(ds.Rules), nil
}

// SetRules replaces the rules blob, including any saved checklist template.
func (s *profileService) SetRules(ctx context.Context, tenantID string, rules json.RawMessage) error {
	if err := checkBlob("rules", rules); err != nil {
		return err
	}
	return s.setBlob(ctx, tenantID, "rules", func(ds *domain.Dataset) { ds.Rules = rules })
}

func (s *profileService) setBlob(ctx context.Context, tenantID, name string, set func(*domain.Dataset)) error {
	if err := checkTenant(tenantID); err != nil {
		return err
	}
	ds, err := s.load(ctx, tenantID)
	if err != nil {
		return err
	}
	set(ds)
	if err := s.save(ctx, tenantID, ds); err != nil {
		return err
	}
	s.logger().WithFields(logrus.Fields{"tenant": tenantID, "blob": name}).Info("blob replaced")
	return nil
}

// checkBlob accepts any JSON object.
func checkBlob(field string, blob json.RawMessage) error {
	var obj map[string]json.RawMessage
	if len(blob) == 0 || json.Unmarshal(blob, &obj) != nil || obj == nil {
		return invalid(field, "must be a JSON object")
	}
	return nil
}

func orEmptyObject(blob json.RawMessage) json.RawMessage {
	if len(blob) == 0 {
		return json.RawMessage(`{}`)
	}
	return blob
}
