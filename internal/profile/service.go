// Package profile applies self-service profile updates.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/auth"
	"github.com/ZWieseDev/TaskSenseiOverview/internal/common"
)

// AllowedFields are the attributes a user may change on themselves.
var AllowedFields = []string{"name", "email", "phone_number", "custom:subscription_status"}

type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

type ExtraDataStore interface {
	UpdateExtraData(ctx context.Context, userID string, data []byte) error
}

type Service struct {
	validator TokenValidator
	directory Directory
	extra     ExtraDataStore
}

func NewService(validator TokenValidator, directory Directory, extra ExtraDataStore) *Service {
	return &Service{validator: validator, directory: directory, extra: extra}
}

// Authenticate resolves the Authorization header value, raw or "Bearer <token>", to a user id.
func (s *Service) Authenticate(ctx context.Context, header string) (string, error) {
	var token string
	switch parts := strings.Fields(header); {
	case len(parts) == 2 && strings.EqualFold(parts[0], "bearer"):
		token = parts[1]
	case len(parts) == 1 && !strings.EqualFold(parts[0], "bearer"):
		token = parts[0]
	}
	if token == "" {
		return "", common.Unauthorized("Unauthorized - Missing Token")
	}

	userID, err := s.validator.Validate(ctx, token)
	switch {
	case errors.Is(err, auth.ErrExpiredCredential):
		return "", common.Unauthorized("Token expired")
	case err != nil:
		return "", common.Unauthorized("Invalid token")
	}
	return userID, nil
}

// Update applies the allowed attributes in body and stores extra_data when present.
func (s *Service) Update(ctx context.Context, authHeader string, body []byte) error {
	userID, err := s.Authenticate(ctx, authHeader)
	if err != nil {
		return err
	}

	var in map[string]json.RawMessage
	if len(body) > 0 {
		if err := json.Unmarshal(body, &in); err != nil {
			return common.BadRequest("Invalid request body")
		}
	}

	updates := make(map[string]string)
	for _, field := range AllowedFields {
		raw, ok := in[field]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		updates[field] = v
	}
	if len(updates) == 0 {
		return common.BadRequest("No valid fields to update.")
	}

	if err := s.directory.UpdateAttributes(ctx, userID, updates); err != nil {
		return common.Upstream(fmt.Errorf("update attributes: %w", err))
	}

	if extra, ok := in["extra_data"]; ok {
		if err := s.extra.UpdateExtraData(ctx, userID, extra); err != nil {
			return common.Upstream(fmt.Errorf("update extra data: %w", err))
		}
	}
	return nil
}
