package rules

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/maildeck/core/internal/database/models"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		ruleType models.RuleType
		operator models.RuleOperator
		value    string
		sender   string
		subject  string
		body     string
		want     bool
	}{
		{
			name:     "sender contains case-insensitive",
			ruleType: models.RuleTypeSender,
			operator: models.OperatorContains,
			value:    "ALICE",
			sender:   "alice@example.com",
			want:     true,
		},
		{
			name:     "subject equals",
			ruleType: models.RuleTypeSubject,
			operator: models.OperatorEquals,
			value:    "invoice",
			subject:  "Invoice",
			want:     true,
		},
		{
			name:     "subject equals partial does not match",
			ruleType: models.RuleTypeSubject,
			operator: models.OperatorEquals,
			value:    "invoice",
			subject:  "Invoice #42",
			want:     false,
		},
		{
			name:     "body starts_with",
			ruleType: models.RuleTypeBody,
			operator: models.OperatorStartsWith,
			value:    "dear",
			body:     "Dear customer, your order shipped.",
			want:     true,
		},
		{
			name:     "body ends_with",
			ruleType: models.RuleTypeBody,
			operator: models.OperatorEndsWith,
			value:    "regards",
			body:     "Thanks and Regards",
			want:     true,
		},
		{
			name:     "domain equals",
			ruleType: models.RuleTypeDomain,
			operator: models.OperatorEquals,
			value:    "corp.com",
			sender:   "Bob <bob@corp.com>",
			want:     true,
		},
		{
			name:     "domain uses last at sign",
			ruleType: models.RuleTypeDomain,
			operator: models.OperatorEquals,
			value:    "b.com",
			sender:   "weird@a.com@b.com",
			want:     true,
		},
		{
			name:     "domain without at never matches",
			ruleType: models.RuleTypeDomain,
			operator: models.OperatorContains,
			value:    "",
			sender:   "no-address-here",
			want:     false,
		},
		{
			name:     "empty subject never matches",
			ruleType: models.RuleTypeSubject,
			operator: models.OperatorContains,
			value:    "anything",
			subject:  "",
			want:     false,
		},
		{
			name:     "regex case-insensitive",
			ruleType: models.RuleTypeSubject,
			operator: models.OperatorRegex,
			value:    `urgent|asap`,
			subject:  "URGENT: server down",
			want:     true,
		},
		{
			name:     "regex matches raw subject casing",
			ruleType: models.RuleTypeSubject,
			operator: models.OperatorRegex,
			value:    `^\[Ticket-\d+\]`,
			subject:  "[Ticket-1234] printer on fire",
			want:     true,
		},
		{
			name:     "invalid regex never matches",
			ruleType: models.RuleTypeSubject,
			operator: models.OperatorRegex,
			value:    `([unclosed`,
			subject:  "([unclosed",
			want:     false,
		},
		{
			name:     "unknown rule type never matches",
			ruleType: models.RuleType("header"),
			operator: models.OperatorContains,
			value:    "x",
			subject:  "x",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.ruleType, tt.operator, tt.value, tt.sender, tt.subject, tt.body)
			if got != tt.want {
				t.Errorf("Match(%s %s %q) = %v, want %v", tt.ruleType, tt.operator, tt.value, got, tt.want)
			}
		})
	}
}

func TestMatchesUsesRuleFields(t *testing.T) {
	rule := &models.Rule{
		RuleType: models.RuleTypeSender,
		Operator: models.OperatorEndsWith,
		Value:    "@corp.com>",
	}
	if !Matches(rule, "Alice <alice@corp.com>", "", "") {
		t.Error("expected rule to match sender suffix")
	}
	if Matches(rule, "alice@other.com", "", "") {
		t.Error("expected rule not to match different domain")
	}
}

// Case changes on either side of a contains comparison never change the
// outcome.
func TestProperty_ContainsCaseInsensitive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	wordGen := gen.SliceOfN(6, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})

	properties.Property("contains_ignores_case", prop.ForAll(
		func(prefix, needle, suffix string) bool {
			subject := prefix + needle + suffix
			lower := Match(models.RuleTypeSubject, models.OperatorContains, strings.ToLower(needle), "", subject, "")
			upper := Match(models.RuleTypeSubject, models.OperatorContains, strings.ToUpper(needle), "", subject, "")
			return lower && upper
		},
		wordGen,
		wordGen,
		wordGen,
	))

	properties.Property("equals_ignores_case", prop.ForAll(
		func(word string) bool {
			return Match(models.RuleTypeSubject, models.OperatorEquals, strings.ToUpper(word), "", strings.ToLower(word), "")
		},
		wordGen,
	))

	properties.TestingRun(t)
}

// A sender with no '@' can never satisfy a domain rule, whatever the
// operator or value.
func TestProperty_DomainRequiresAtSign(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	noAtGen := gen.SliceOfN(12, gen.AlphaChar()).Map(func(chars []rune) string {
		return string(chars)
	})
	operatorGen := gen.OneConstOf(
		models.OperatorContains,
		models.OperatorEquals,
		models.OperatorStartsWith,
		models.OperatorEndsWith,
	)

	properties.Property("no_at_never_matches", prop.ForAll(
		func(sender, value string, op models.RuleOperator) bool {
			return !Match(models.RuleTypeDomain, op, value, sender, "", "")
		},
		noAtGen,
		noAtGen,
		operatorGen,
	))

	properties.TestingRun(t)
}
