// Package rules evaluates user-defined classification rules against message
// fields. Matching is case-insensitive for all operators; regex patterns are
// compiled with the case-insensitive flag and an invalid pattern simply does
// not match.
package rules

import (
	"regexp"
	"strings"

	"github.com/maildeck/core/internal/database/models"
)

// Matches reports whether one rule matches the given message fields.
func Matches(rule *models.Rule, sender, subject, body string) bool {
	return Match(rule.RuleType, rule.Operator, rule.Value, sender, subject, body)
}

// Match evaluates a single (type, operator, value) condition against the
// message's sender, subject and body.
func Match(ruleType models.RuleType, operator models.RuleOperator, value, sender, subject, body string) bool {
	var target string
	switch ruleType {
	case models.RuleTypeSender:
		target = sender
	case models.RuleTypeSubject:
		target = subject
	case models.RuleTypeBody:
		target = body
	case models.RuleTypeDomain:
		target = senderDomain(sender)
	default:
		return false
	}

	// A missing comparison subject never matches
	if target == "" {
		return false
	}

	if operator == models.OperatorRegex {
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			return false
		}
		return re.MatchString(target)
	}

	target = strings.ToLower(target)
	value = strings.ToLower(value)

	switch operator {
	case models.OperatorContains:
		return strings.Contains(target, value)
	case models.OperatorEquals:
		return target == value
	case models.OperatorStartsWith:
		return strings.HasPrefix(target, value)
	case models.OperatorEndsWith:
		return strings.HasSuffix(target, value)
	}
	return false
}

// senderDomain extracts the part of the sender address after '@'. Senders
// without an '@' yield the empty string, which never matches.
func senderDomain(sender string) string {
	idx := strings.LastIndex(sender, "@")
	if idx < 0 {
		return ""
	}
	domain := sender[idx+1:]
	// Strip a trailing '>' from "Name <user@host>" style addresses
	return strings.TrimRight(domain, ">")
}
