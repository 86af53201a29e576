package gtaw

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/jamesprial/go-twitter-api-wrapper/internal"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// ruleMirror is the client's copy of the filtered stream rule set, kept in
// step with every successful List, Add and Delete.
type ruleMirror struct {
	mu    sync.RWMutex
	rules map[string]types.StreamRule
}

func newRuleMirror() *ruleMirror {
	return &ruleMirror{rules: make(map[string]types.StreamRule)}
}

func (m *ruleMirror) replace(rules []*types.StreamRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make(map[string]types.StreamRule, len(rules))
	for _, r := range rules {
		if r != nil && r.GetID() != "" {
			m.rules[r.GetID()] = *r
		}
	}
}

func (m *ruleMirror) add(rules []*types.StreamRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rules {
		if r != nil && r.GetID() != "" {
			m.rules[r.GetID()] = *r
		}
	}
}

func (m *ruleMirror) remove(ids []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.rules, id)
	}
}

func (m *ruleMirror) snapshot() []types.StreamRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.StreamRule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GetID() < out[j].GetID() })
	return out
}

func (m *ruleMirror) get(id string) (types.StreamRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[id]
	return r, ok
}

// RuleSummary counts the outcome of an Add or Delete call.
type RuleSummary struct {
	Created    int `json:"created"`
	NotCreated int `json:"not_created"`
	Valid      int `json:"valid"`
	Invalid    int `json:"invalid"`
	Deleted    int `json:"deleted"`
	NotDeleted int `json:"not_deleted"`
}

// RuleResult is the answer to Add or Delete. Rules holds the created rules;
// it is empty for Delete and for dry runs that create nothing.
type RuleResult struct {
	Rules    []*types.StreamRule
	Summary  RuleSummary
	Problems []types.Problem
}

// RuleService manages the rules of the filtered stream. Every call uses
// app-only authentication.
type RuleService struct {
	c *Client
}

// Rules returns the filtered stream rule endpoints.
func (c *Client) Rules() *RuleService {
	return &RuleService{c: c}
}

var rulesRoute = []string{"tweets", "search", "stream", "rules"}

// List returns the active rules and refreshes the local mirror.
func (s *RuleService) List(ctx context.Context) ([]*types.StreamRule, error) {
	env, err := s.c.doData(ctx, &internal.Job{
		Route: internal.NewRoute(rulesRoute...).Get(),
		Auth:  AuthBearer,
	})
	if err != nil {
		return nil, err
	}
	rules, err := internal.DecodeList[*types.StreamRule](env.Data)
	if err != nil {
		return nil, &pkgerrs.ParseError{Operation: "GET tweets/search/stream/rules", Err: err}
	}
	s.c.rules.replace(rules)
	s.c.logger.Debug("stream rules listed", "count", len(rules))
	return rules, nil
}

// Add registers rules. With dryRun the API only validates them and the mirror
// is left alone. When some rules are accepted, the refused ones are reported
// in the result's Problems. When every rule is refused the response carries no
// data and Add returns an *APIError holding the first problem, with the rest
// in its Additional field; the mirror is left alone.
func (s *RuleService) Add(ctx context.Context, rules []types.StreamRule, dryRun bool) (*RuleResult, error) {
	if len(rules) == 0 {
		return nil, &pkgerrs.ConfigError{Field: "rules", Message: "at least one rule is required"}
	}
	for _, r := range rules {
		if err := s.c.validator.ValidateQuery("rules.value", r.Value); err != nil {
			return nil, err
		}
	}

	body := struct {
		Add []types.StreamRule `json:"add"`
	}{Add: rules}

	res, err := s.post(ctx, body, dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		s.c.rules.add(res.Rules)
	}
	s.c.logger.Info("stream rules added", "created", res.Summary.Created, "not_created", res.Summary.NotCreated, "dry_run", dryRun)
	return res, nil
}

// Delete removes rules by ID. With dryRun the mirror is left alone.
func (s *RuleService) Delete(ctx context.Context, ids []string, dryRun bool) (*RuleResult, error) {
	if err := s.c.validator.ValidateIDs("ids", ids); err != nil {
		return nil, err
	}

	body := struct {
		Delete struct {
			IDs []string `json:"ids"`
		} `json:"delete"`
	}{}
	body.Delete.IDs = ids

	res, err := s.post(ctx, body, dryRun)
	if err != nil {
		return nil, err
	}
	if !dryRun {
		s.c.rules.remove(ids)
	}
	s.c.logger.Info("stream rules deleted", "deleted", res.Summary.Deleted, "not_deleted", res.Summary.NotDeleted, "dry_run", dryRun)
	return res, nil
}

// Mirror returns the locally known rules, sorted by ID. It reflects the last
// List plus every Add and Delete since, and makes no request.
func (s *RuleService) Mirror() []types.StreamRule {
	return s.c.rules.snapshot()
}

// Known returns a mirrored rule by ID.
func (s *RuleService) Known(id string) (types.StreamRule, bool) {
	return s.c.rules.get(id)
}

func (s *RuleService) post(ctx context.Context, body any, dryRun bool) (*RuleResult, error) {
	var query Params
	if dryRun {
		query = Params{"dry_run": "true"}
	}
	env, err := s.c.doData(ctx, &internal.Job{
		Route: internal.NewRoute(rulesRoute...).Post(),
		Query: query,
		Body:  body,
		Auth:  AuthBearer,
	})
	if err != nil {
		return nil, err
	}

	out := &RuleResult{Problems: env.Errors}
	if env.HasData() {
		rules, err := internal.DecodeList[*types.StreamRule](env.Data)
		if err != nil {
			return nil, &pkgerrs.ParseError{Operation: "POST tweets/search/stream/rules", Err: err}
		}
		out.Rules = rules
	}
	if env.Meta != nil && len(env.Meta.Summary) > 0 {
		if err := json.Unmarshal(env.Meta.Summary, &out.Summary); err != nil {
			return nil, &pkgerrs.ParseError{Operation: "POST tweets/search/stream/rules", Message: "invalid summary", Err: err}
		}
	}
	return out, nil
}
