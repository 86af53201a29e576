package gtaw

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

func TestRules_Lifecycle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/tweets/search/stream/rules", r.URL.Path)
		assert.Equal(t, "Bearer test-bearer", r.Header.Get("Authorization"))

		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, `{"data":[{"id":"1","value":"cat has:images","tag":"cats"},{"id":2,"value":"dog"}],"meta":{"sent":"2021-01-01T00:00:00.000Z","result_count":2}}`)
			return
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &body))
		dryRun := r.URL.Query().Get("dry_run") == "true"

		switch {
		case body["add"] != nil && dryRun:
			writeJSON(w, http.StatusOK, `{"meta":{"sent":"x","summary":{"created":0,"not_created":0,"valid":1,"invalid":0}}}`)
		case body["add"] != nil:
			writeJSON(w, http.StatusCreated, `{
				"data":[{"id":"3","value":"bird","tag":"birds"}],
				"meta":{"sent":"x","summary":{"created":1,"not_created":1,"valid":1,"invalid":1}},
				"errors":[{"value":"((","details":["Unmatched parenthesis"],"title":"UnprocessableEntity","type":"https://api.twitter.com/2/problems/invalid-rules"}]
			}`)
		case body["delete"] != nil:
			assert.JSONEq(t, `{"ids":["1"]}`, string(body["delete"]))
			writeJSON(w, http.StatusOK, `{"meta":{"sent":"x","summary":{"deleted":1,"not_deleted":0}}}`)
		default:
			t.Errorf("unexpected body %s", raw)
		}
	})
	ctx := context.Background()
	rules := client.Rules()

	listed, err := rules.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "2", listed[1].GetID(), "numeric IDs are accepted")
	assert.Len(t, rules.Mirror(), 2)

	dry, err := rules.Add(ctx, []types.StreamRule{{Value: "bird"}}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, dry.Summary.Valid)
	assert.Len(t, rules.Mirror(), 2, "dry run must not change the mirror")

	var partial []PartialError
	client.OnPartialError(func(pe PartialError) { partial = append(partial, pe) })

	added, err := rules.Add(ctx, []types.StreamRule{{Value: "bird", Tag: "birds"}, {Value: "(("}}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, added.Summary.Created)
	assert.Equal(t, 1, added.Summary.Invalid)
	require.Len(t, added.Problems, 1)
	assert.Len(t, partial, 1, "refused rules are also reported as partial errors")
	assert.Len(t, rules.Mirror(), 3)

	r, ok := rules.Known("3")
	require.True(t, ok)
	assert.Equal(t, "birds", r.Tag)

	deleted, err := rules.Delete(ctx, []string{"1"}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted.Summary.Deleted)

	ids := make([]string, 0)
	for _, r := range rules.Mirror() {
		ids = append(ids, r.GetID())
	}
	assert.Equal(t, []string{"2", "3"}, ids)
}

func TestRules_Validation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	ctx := context.Background()

	_, err := client.Rules().Add(ctx, nil, false)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = client.Rules().Add(ctx, []types.StreamRule{{Value: " "}}, false)
	assert.ErrorAs(t, err, &cfgErr)

	_, err = client.Rules().Delete(ctx, []string{"abc"}, false)
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRules_AddAllRefused(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{
			"meta":{"sent":"x","summary":{"created":0,"not_created":2,"valid":0,"invalid":2}},
			"errors":[
				{"value":"((","details":["Unmatched parenthesis"],"title":"UnprocessableEntity","type":"https://api.twitter.com/2/problems/invalid-rules"},
				{"value":"))","details":["Unmatched parenthesis"],"title":"UnprocessableEntity","type":"https://api.twitter.com/2/problems/invalid-rules"}
			]
		}`)
	})

	res, err := client.Rules().Add(context.Background(), []types.StreamRule{{Value: "(("}, {Value: "))"}}, false)
	assert.Nil(t, res)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	require.NotNil(t, apiErr.Problem.Title)
	assert.Equal(t, "UnprocessableEntity", *apiErr.Problem.Title)
	assert.Len(t, apiErr.Additional, 1)
	assert.Empty(t, client.Rules().Mirror())
}
