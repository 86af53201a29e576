package helpers

import (
	"math/rand"
	"strings"
	"unicode"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// FuzzUsername generates handles that must be rejected before any request.
// A single leading "@" is accepted by the client, so none of these rely on it.
func (f *Fuzzer) FuzzUsername() []string {
	return []string{
		// Empty and boundary cases
		"",
		"@",
		"abcdefghijklmnop", // One char too long
		strings.Repeat("a", 100),

		// Path traversal
		"../../2/users/me",
		"..%2F..%2Fadmin",
		"jack/../me",

		// Query and fragment smuggling
		"jack?user.fields=all",
		"jack#frag",
		"jack&ids=1",

		// Unicode
		"café",
		"тест",
		"测试",
		"🚀rocket",
		"jack\u202Eadmin",

		// Control characters
		"jack\n",
		"jack\x00",
		"\tjack",

		// Other punctuation
		"twitter-dev",
		"twitter.dev",
		"jack dorsey",
		"jack@",
	}
}

// FuzzID generates resource IDs that must be rejected before any request.
func (f *Fuzzer) FuzzID() []string {
	return []string{
		// Empty and boundary cases
		"",
		strings.Repeat("1", 21), // One over max length
		strings.Repeat("9", 100),

		// Signs and formats
		"-1",
		"+1",
		"1e10",
		"0x1F",
		"1.5",
		" 1",
		"1 ",

		// Path traversal
		"../../2/users/me",
		"1/../../admin",
		"1%2F..",

		// Query smuggling
		"1?expansions=author_id",
		"1&ids=2",

		// Control characters
		"1\n",
		"1\x00",
		"\x1B1",

		// Unicode digits
		"١٢٣", // Arabic-Indic digits
		"１２３", // Fullwidth digits
	}
}

// FuzzQuery generates search queries and rule values that must be rejected.
func (f *Fuzzer) FuzzQuery() []string {
	return []string{
		"",
		" ",
		"\t\n",
		strings.Repeat("a", 1025),
		strings.Repeat("cat OR ", 200),
	}
}

// FuzzUserAgent generates malicious User-Agent test cases
func (f *Fuzzer) FuzzUserAgent() []string {
	return []string{
		// Header injection via newlines
		"MyApp/1.0\nX-Evil-Header: injected",
		"MyApp/1.0\rX-Evil-Header: injected",
		"MyApp/1.0\r\nX-Evil-Header: injected",
		"MyApp/1.0\n\nInjected Body",

		// Extremely long
		strings.Repeat("a", 257), // One over limit
		strings.Repeat("a", 10000),

		// Multiple newlines
		"MyApp/1.0\n\n\nEvil",
		"\n\n\nMyApp/1.0",

		// Mixed injection attempts
		"MyApp/1.0\r\nContent-Length: 0\r\n\r\nGET /evil HTTP/1.1",
		"MyApp/1.0\nAuthorization: Bearer stolen",
	}
}

// FuzzMaxResults generates page sizes outside every endpoint's bounds.
func (f *Fuzzer) FuzzMaxResults() []int {
	return []int{
		-1,
		-100,
		-2147483648, // int32 min
		1,           // Below the search minimum
		1001,        // One over the largest maximum
		2147483647,  // int32 max
	}
}

// GenerateRandomID returns a random numeric ID of 1 to 19 digits.
func (f *Fuzzer) GenerateRandomID() string {
	const digits = "0123456789"
	n := f.rnd.Intn(19) + 1
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[f.rnd.Intn(len(digits))]
	}
	if b[0] == '0' && n > 1 {
		b[0] = '1'
	}
	return string(b)
}

// GenerateRandomString generates a random string of the given length with specified character types
func (f *Fuzzer) GenerateRandomString(length int, includeSpecial bool) string {
	const (
		letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
		special = "!@#$%^&*()_+-=[]{}|;':\",./<>?`~"
	)

	charset := letters
	if includeSpecial {
		charset += special
	}

	result := make([]byte, length)
	for i := range result {
		result[i] = charset[f.rnd.Intn(len(charset))]
	}
	return string(result)
}

// GenerateControlCharString generates a string with various control characters
func (f *Fuzzer) GenerateControlCharString() []string {
	var results []string
	for i := 0; i < 32; i++ {
		char := rune(i)
		if unicode.IsControl(char) {
			results = append(results, "test"+string(char)+"string")
			results = append(results, string(char)+"teststring")
			results = append(results, "teststring"+string(char))
		}
	}
	results = append(results, "test\x7Fstring")
	return results
}

// GenerateUnicodeAttacks generates strings with various Unicode attack patterns
func (f *Fuzzer) GenerateUnicodeAttacks() []string {
	return []string{
		// Zero-width characters
		"test\u200Bstring",
		"test\u200Cstring",
		"test\u200Dstring",
		"test\uFEFFstring",

		// Direction overrides
		"test\u202Estring",
		"test\u202Dstring",

		// Combining characters
		"test\u0301string",

		// Homoglyphs
		"gооgle", // Cyrillic о instead of Latin o
		"аpple",  // Cyrillic а instead of Latin a
	}
}
