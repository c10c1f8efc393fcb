// Package rules implements the declarative rules engine: conditions
// matched against a download's context, and actions that, when triggered,
// publish events for other components to act on.
package rules

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ConditionType is the closed set of attributes a rule can test.
type ConditionType string

const (
	URLPattern    ConditionType = "url_pattern"
	Domain        ConditionType = "domain"
	TitlePattern  ConditionType = "title_pattern"
	Uploader      ConditionType = "uploader"
	Duration      ConditionType = "duration"
	FileSize      ConditionType = "file_size"
	ViewCount     ConditionType = "view_count"
	UploadDate    ConditionType = "upload_date"
	TimeOfDay     ConditionType = "time_of_day"
	DayOfWeek     ConditionType = "day_of_week"
	QueueSize     ConditionType = "queue_size"
	BandwidthUsage ConditionType = "bandwidth_usage"
)

// Operator is the closed set of comparisons a condition may apply.
type Operator string

const (
	Equals       Operator = "equals"
	NotEquals    Operator = "not_equals"
	Contains     Operator = "contains"
	NotContains  Operator = "not_contains"
	Matches      Operator = "matches"
	NotMatches   Operator = "not_matches"
	GreaterThan  Operator = "greater_than"
	LessThan     Operator = "less_than"
	GreaterEqual Operator = "greater_equal"
	LessEqual    Operator = "less_equal"
	InRange      Operator = "in_range"
)

// Condition tests one attribute of a context against a value.
type Condition struct {
	Type     ConditionType
	Operator Operator
	Value    any
	// CaseSensitive disables the default case-insensitive string
	// comparison for string-valued operators.
	CaseSensitive bool
}

// Context carries the facts a rule is evaluated against: the download's
// own attributes plus ambient system state at evaluation time.
type Context map[string]any

func (c Condition) contextValue(ctx Context) (any, bool) {
	switch c.Type {
	case URLPattern:
		v, ok := ctx["url"]
		return v, ok
	case Domain:
		raw, ok := ctx["url"].(string)
		if !ok {
			return nil, false
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, false
		}
		return u.Hostname(), true
	case TitlePattern:
		v, ok := ctx["title"]
		return v, ok
	case Uploader:
		v, ok := ctx["uploader"]
		return v, ok
	case Duration:
		v, ok := ctx["duration"]
		return v, ok
	case FileSize:
		v, ok := ctx["file_size"]
		return v, ok
	case ViewCount:
		v, ok := ctx["view_count"]
		return v, ok
	case UploadDate:
		v, ok := ctx["upload_date"]
		return v, ok
	case TimeOfDay:
		v, ok := ctx["time_of_day"]
		return v, ok
	case DayOfWeek:
		v, ok := ctx["day_of_week"]
		return v, ok
	case QueueSize:
		v, ok := ctx["queue_size"]
		return v, ok
	case BandwidthUsage:
		v, ok := ctx["bandwidth_usage"]
		return v, ok
	default:
		return nil, false
	}
}

// Evaluate reports whether ctx satisfies the condition.
func (c Condition) Evaluate(ctx Context) bool {
	actual, ok := c.contextValue(ctx)
	if !ok {
		return false
	}
	return compare(actual, c.Operator, c.Value, c.CaseSensitive)
}

func compare(actual any, op Operator, want any, caseSensitive bool) bool {
	if op == InRange {
		af, aok := toFloat(actual)
		bounds, bok := want.([2]float64)
		return aok && bok && af >= bounds[0] && af <= bounds[1]
	}

	if af, aok := toFloat(actual); aok {
		if wf, wok := toFloat(want); wok {
			switch op {
			case Equals:
				return af == wf
			case NotEquals:
				return af != wf
			case GreaterThan:
				return af > wf
			case LessThan:
				return af < wf
			case GreaterEqual:
				return af >= wf
			case LessEqual:
				return af <= wf
			}
		}
	}

	as, aok := toString(actual)
	ws, wok := toString(want)
	if !aok || !wok {
		return false
	}
	if !caseSensitive {
		as = strings.ToLower(as)
		ws = strings.ToLower(ws)
	}

	switch op {
	case Equals:
		return as == ws
	case NotEquals:
		return as != ws
	case Contains:
		return strings.Contains(as, ws)
	case NotContains:
		return !strings.Contains(as, ws)
	case Matches:
		re, err := regexp.Compile(ws)
		return err == nil && re.MatchString(as)
	case NotMatches:
		re, err := regexp.Compile(ws)
		return err != nil || !re.MatchString(as)
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmtStringer:
		return s.String(), true
	default:
		return "", false
	}
}

type fmtStringer interface{ String() string }
