/*
Package factory provides JSON to Go commission-policy conversion.

PURPOSE:
  Class rows store their commission configuration as a JSON document, so
  admins can change a class's policy without a code deploy. This package
  converts that JSON into a validated commission.Policy.

JSON SCHEMA:
  {
    "type": "BY_STUDENT",
    "amount": 15000
  }

  "type" must be BY_CLASS or BY_STUDENT; "amount" is a non-negative rupiah
  rate. Both validation failures surface the commission package's error
  taxonomy - nothing is silently defaulted.

USAGE:
  factory := factory.NewPolicyFactory()
  policy, err := factory.ParsePolicy(class.PolicyJSON)

SEE ALSO:
  - commission/calculator.go: Policy definition and validation
  - store/sqlite: Persists the raw config JSON on class rows
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kelola/course-engine/commission"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a class commission policy.
type PolicyJSON struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// FACTORY
// =============================================================================

// PolicyFactory converts JSON policy configs into commission.Policy.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses and validates a policy config JSON document.
func (f *PolicyFactory) ParsePolicy(configJSON string) (commission.Policy, error) {
	var raw PolicyJSON
	if err := json.Unmarshal([]byte(configJSON), &raw); err != nil {
		return commission.Policy{}, fmt.Errorf("parse policy config: %w", err)
	}
	return f.FromJSON(raw)
}

// FromJSON validates an already-decoded policy config.
func (f *PolicyFactory) FromJSON(raw PolicyJSON) (commission.Policy, error) {
	policy := commission.Policy{
		Type:   commission.PolicyType(raw.Type),
		Amount: raw.Amount,
	}
	if err := policy.Validate(); err != nil {
		return commission.Policy{}, err
	}
	return policy, nil
}

// =============================================================================
// PRESETS - Ready-to-store policy configs
// =============================================================================

// FlatRateJSON builds a BY_CLASS config document.
func FlatRateJSON(amount int64) string {
	return fmt.Sprintf(`{"type":"BY_CLASS","amount":%d}`, amount)
}

// PerStudentJSON builds a BY_STUDENT config document.
func PerStudentJSON(amount int64) string {
	return fmt.Sprintf(`{"type":"BY_STUDENT","amount":%d}`, amount)
}
