// Package authz decides what a user may do with a priority using an embedded
// Cedar policy set.
package authz

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/cedar-policy/cedar-go"
)

//go:embed policies/priorities.cedar
var policyContent string

// Action names as they appear in the policy file.
type Action string

const (
	ActionRegister        Action = "RegisterPriority"
	ActionList            Action = "ListPriorities"
	ActionView            Action = "ViewPriority"
	ActionUpdateDocuments Action = "UpdateDocuments"
	ActionExportReport    Action = "ExportReport"
)

const (
	userType     = "Prioridades::User"
	actionType   = "Prioridades::Action"
	priorityType = "Prioridades::Priority"
)

// Resource identifies the priority an action targets. Zero for actions that
// do not target a single priority.
type Resource struct {
	ID      string
	OwnerID string
}

// Authorizer evaluates requests against the policy set.
type Authorizer struct {
	policySet *cedar.PolicySet
}

func NewAuthorizer() (*Authorizer, error) {
	return NewAuthorizerFromBytes([]byte(policyContent))
}

// NewAuthorizerFromBytes parses a custom policy document.
func NewAuthorizerFromBytes(policies []byte) (*Authorizer, error) {
	ps, err := cedar.NewPolicySetFromBytes("priorities.cedar", policies)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policies: %w", err)
	}
	return &Authorizer{policySet: ps}, nil
}

// IsAuthorized reports whether userID may perform action on res.
func (a *Authorizer) IsAuthorized(userID string, action Action, res Resource) (bool, error) {
	if userID == "" {
		return false, nil
	}
	entities, err := buildEntities(userID, res)
	if err != nil {
		return false, err
	}
	resourceID := res.ID
	if resourceID == "" {
		resourceID = "*"
	}
	req := cedar.Request{
		Principal: cedar.NewEntityUID(cedar.EntityType(userType), cedar.String(userID)),
		Action:    cedar.NewEntityUID(cedar.EntityType(actionType), cedar.String(string(action))),
		Resource:  cedar.NewEntityUID(cedar.EntityType(priorityType), cedar.String(resourceID)),
		Context:   cedar.NewRecord(cedar.RecordMap{}),
	}
	decision, _ := a.policySet.IsAuthorized(entities, req)
	return decision == cedar.Allow, nil
}

type entityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type entityJSON struct {
	UID     entityRef              `json:"uid"`
	Attrs   map[string]interface{} `json:"attrs"`
	Parents []entityRef            `json:"parents"`
}

func buildEntities(userID string, res Resource) (cedar.EntityMap, error) {
	list := []entityJSON{{
		UID:     entityRef{Type: userType, ID: userID},
		Attrs:   map[string]interface{}{},
		Parents: []entityRef{},
	}}
	if res.ID != "" && res.OwnerID != "" {
		list = append(list, entityJSON{
			UID: entityRef{Type: priorityType, ID: res.ID},
			Attrs: map[string]interface{}{
				"owner": map[string]interface{}{
					"__entity": entityRef{Type: userType, ID: res.OwnerID},
				},
			},
			Parents: []entityRef{},
		})
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entities: %w", err)
	}
	var entities cedar.EntityMap
	if err := json.Unmarshal(b, &entities); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entities: %w", err)
	}
	return entities, nil
}
