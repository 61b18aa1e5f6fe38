package casbin

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"slices"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/nasermirzaei89/forum/authorization"
)

const ObjectNone = "-"

//go:embed model.conf
var casbinModelContent string

type AuthorizationProvider struct {
	enforcer *casbin.Enforcer
}

var _ authorization.AuthorizationProvider = (*AuthorizationProvider)(nil)

func NewAuthorizationProvider(persistAdapter persist.Adapter) (*AuthorizationProvider, error) {
	casbinModel, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(casbinModel, persistAdapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)

	err = enforcer.LoadPolicy()
	if err != nil {
		return nil, fmt.Errorf("failed to load db policy: %w", err)
	}

	return &AuthorizationProvider{
		enforcer: enforcer,
	}, nil
}

func (ap *AuthorizationProvider) CheckAccess(
	_ context.Context,
	req authorization.CheckAccessRequest,
) (*authorization.CheckAccessResponse, error) {
	if req.Object == "" {
		req.Object = ObjectNone
	}

	allowed, err := ap.enforcer.Enforce(req.Subject, req.Domain, req.Object, req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}

	return &authorization.CheckAccessResponse{
		Allowed: allowed,
		Denied:  false,
		Reason:  "",
	}, nil
}

func (ap *AuthorizationProvider) AddPolicy(_ context.Context, reqs ...authorization.AddPolicyRequest) error {
	for _, req := range reqs {
		if req.Object == "" {
			req.Object = ObjectNone
		}

		_, err := ap.enforcer.AddPolicy(req.Subject, req.Domain, req.Object, req.Action)
		if err != nil {
			return fmt.Errorf("failed to add policy: %w", err)
		}
	}

	return nil
}

func (ap *AuthorizationProvider) AddToGroup(_ context.Context, sub string, groups ...string) error {
	for _, group := range groups {
		_, err := ap.enforcer.AddGroupingPolicy(sub, group)
		if err != nil {
			return fmt.Errorf("failed to add grouping policy: %w", err)
		}
	}

	return nil
}

func (ap *AuthorizationProvider) RemovePolicy(_ context.Context, reqs ...authorization.RemovePolicyRequest) error {
	for _, req := range reqs {
		if req.Object == "" {
			req.Object = ObjectNone
		}

		_, err := ap.enforcer.RemovePolicy(req.Subject, req.Domain, req.Object, req.Action)
		if err != nil {
			return fmt.Errorf("failed to remove policy: %w", err)
		}
	}

	return nil
}

func (ap *AuthorizationProvider) RemoveFromGroup(_ context.Context, sub string, groups ...string) error {
	for _, group := range groups {
		_, err := ap.enforcer.RemoveGroupingPolicy(sub, group)
		if err != nil {
			return fmt.Errorf("failed to remove grouping policy: %w", err)
		}
	}

	return nil
}

func (ap *AuthorizationProvider) InGroup(_ context.Context, sub, group string) (bool, error) {
	roles, err := ap.enforcer.GetImplicitRolesForUser(sub)
	if err != nil {
		return false, fmt.Errorf("failed to get implicit roles: %w", err)
	}

	return slices.Contains(roles, group), nil
}

func (ap *AuthorizationProvider) AddPolicyFromCSV(_ context.Context, casbinPolicyContent string) error {
	err := addPolicyFromString(ap.enforcer, casbinPolicyContent)
	if err != nil {
		return fmt.Errorf("failed to load csv policy: %w", err)
	}

	return nil
}

func addPolicyFromString(enforcer *casbin.Enforcer, policyFileContent string) error {
	reader := csv.NewReader(strings.NewReader(policyFileContent))

	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read policy content: %w", err)
	}

	for _, record := range records {
		record = normalizePolicyRecord(record)
		if len(record) == 0 || record[0] == "" {
			continue
		}

		err = addPolicyFromRecord(enforcer, record)
		if err != nil {
			return fmt.Errorf("failed to add policy from record: %w", err)
		}
	}

	return nil
}

func normalizePolicyRecord(record []string) []string {
	normalized := make([]string, len(record))
	for i := range record {
		normalized[i] = strings.TrimSpace(record[i])
	}

	return normalized
}

func addPolicyFromRecord(enforcer *casbin.Enforcer, record []string) error {
	args := make([]any, 0, len(record)-1)
	for _, param := range record[1:] {
		args = append(args, param)
	}

	switch record[0] {
	case "p":
		_, err := enforcer.AddPolicy(args...)
		if err != nil {
			return fmt.Errorf("failed to add policy: %w", err)
		}
	case "g":
		_, err := enforcer.AddGroupingPolicy(args...)
		if err != nil {
			return fmt.Errorf("failed to add grouping policy: %w", err)
		}
	default:
		return UnknownPolicyTypeError{PolicyType: record[0]}
	}

	return nil
}
