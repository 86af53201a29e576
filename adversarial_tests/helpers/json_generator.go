package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates malicious and malformed JSON for testing
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// GenerateDeeplyNestedTweet creates a Tweet whose entities member nests depth
// arrays. Entities are kept as raw JSON, so only the decoder's own nesting
// limit applies.
func (g *JSONGenerator) GenerateDeeplyNestedTweet(depth int) string {
	return fmt.Sprintf(`{"data":{"id":"1","text":"deep","entities":%s%s}}`,
		strings.Repeat("[", depth), strings.Repeat("]", depth))
}

// GenerateMalformedEnvelopes returns 2xx bodies that are not valid JSON.
func (g *JSONGenerator) GenerateMalformedEnvelopes() []string {
	return []string{
		// Truncated
		`{"data": {"id": "1", "text": "hel`,
		`{"data": [`,
		`{`,

		// Trailing garbage
		`{"data": {"id": "1"}} trailing`,
		`{"data": {"id": "1"}}}`,

		// Wrong quoting
		`{'data': {'id': '1'}}`,
		`{data: {id: 1}}`,

		// Invalid escapes
		`{"data": {"id": "1", "text": "\x00"}}`,
		`{"data": {"id": "1", "text": "\uZZZZ"}}`,

		// Trailing comma
		`{"data": {"id": "1",}}`,
	}
}

// GenerateTypeConfusion returns well-formed envelopes whose members carry the
// wrong JSON types.
func (g *JSONGenerator) GenerateTypeConfusion() []string {
	return []string{
		`{"data": "not an object"}`,
		`{"data": 12345}`,
		`{"data": true}`,
		`{"data": {"id": 12345, "text": "numeric id"}}`,
		`{"data": {"id": "1", "text": ["array", "text"]}}`,
		`{"data": {"id": "1", "public_metrics": "lots"}}`,
		`{"data": {"id": "1", "created_at": "yesterday"}}`,
		`{"data": {"id": "1", "referenced_tweets": {"type": "quoted"}}}`,
	}
}

// GenerateEmptyEnvelopes returns bodies that decode but carry no data.
func (g *JSONGenerator) GenerateEmptyEnvelopes() []string {
	return []string{
		`{}`,
		`{"data": null}`,
		`{"meta": {"result_count": 0}}`,
		`{"includes": {"users": []}}`,
	}
}

// GenerateProblemBodies returns non-2xx bodies of every shape the parser must
// tolerate, from proper problem objects to garbage.
func (g *JSONGenerator) GenerateProblemBodies() []string {
	return []string{
		`{"title": "Unauthorized", "type": "about:blank", "status": 401, "detail": "Unauthorized"}`,
		`{"errors": [{"message": "Invalid Request"}, {"message": "Second"}], "title": "Invalid Request"}`,
		`{"errors": [{"title": "Not Found Error", "detail": "Could not find user"}]}`,
		`{"errors": []}`,
		`{"errors": "nope"}`,
		`{"title": 42}`,
		`{}`,
		`null`,
		`[]`,
		`<html><body>Over capacity</body></html>`,
		``,
		strings.Repeat("x", 1<<16),
	}
}

// GenerateMalformedStreamChunks returns single stream lines that must be
// skipped without tearing down the connection.
func (g *JSONGenerator) GenerateMalformedStreamChunks() []string {
	return []string{
		`{"data": {"id": "1"`,
		`not json at all`,
		`}{`,
		`{"data": {"id": "1"}} {"data": {"id": "2"}}`,
		"\x00\x01\x02",
		`{"data": {"id": "1", "text": "\uZZZZ"}}`,
	}
}

// GenerateUndeliverableStreamChunks returns valid JSON lines that carry no
// Tweet. They are consumed but must not reach event handlers.
func (g *JSONGenerator) GenerateUndeliverableStreamChunks() []string {
	return []string{
		`{}`,
		`[]`,
		`"heartbeat"`,
		`42`,
		`{"data": null}`,
		`{"matching_rules": [{"id": "1", "tag": "orphan"}]}`,
		`{"data": "string data"}`,
	}
}

// GenerateStreamTweet returns a valid stream event line for id.
func (g *JSONGenerator) GenerateStreamTweet(id, tag string) string {
	return fmt.Sprintf(`{"data":{"id":%q,"text":"event %s"},"matching_rules":[{"id":"1","tag":%q}]}`, id, id, tag)
}

// GenerateLargeTimeline creates a search page with n Tweets and the given
// next_token. Empty token marks the last page.
func (g *JSONGenerator) GenerateLargeTimeline(n int, start int64, nextToken string) string {
	var b strings.Builder
	b.WriteString(`{"data":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"id":"%d","text":"tweet %d","author_id":"7"}`, start-int64(i), i)
	}
	b.WriteString(`],"meta":{"result_count":`)
	fmt.Fprintf(&b, "%d", n)
	if nextToken != "" {
		fmt.Fprintf(&b, `,"next_token":%q`, nextToken)
	}
	b.WriteString(`}}`)
	return b.String()
}
