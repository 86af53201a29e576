package internal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

// Parser handles decoding of API response bodies.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseEnvelope decodes a 2xx JSON body into the shared response envelope.
func (p *Parser) ParseEnvelope(body []byte) (*types.Response, error) {
	var resp types.Response
	if len(bytes.TrimSpace(body)) == 0 {
		return &resp, nil
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}
	return &resp, nil
}

// ParseProblem decodes the body of a non-2xx response. The API answers either with
// a problem object or with an envelope whose "errors" array holds the problems, so
// both shapes are accepted. The first problem is returned as primary. A body that
// is not JSON yields an empty primary problem.
func (p *Parser) ParseProblem(body []byte) (types.Problem, []types.Problem) {
	var combined struct {
		types.Problem
		Errors []types.Problem `json:"errors"`
	}
	if err := json.Unmarshal(body, &combined); err != nil {
		return types.Problem{}, nil
	}

	primary := combined.Problem
	if primary.Title == nil && primary.Detail == nil && primary.Message == nil && len(combined.Errors) > 0 {
		return combined.Errors[0], combined.Errors[1:]
	}
	return primary, combined.Errors
}

// DecodeList decodes a "data" member that may hold either an array of T or a
// single T. Null and empty data yield an empty slice.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}

	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("failed to parse data array: %w", err)
		}
		return items, nil
	}

	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to parse data object: %w", err)
	}
	return []T{item}, nil
}

// DecodeOne decodes a "data" member holding a single object.
func DecodeOne[T any](raw json.RawMessage) (*T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("response carries no data")
	}

	var item T
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to parse data object: %w", err)
	}
	return &item, nil
}
