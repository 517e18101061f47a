package domain

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultLedgerMaxValues bounds each of the ledger's key maps.
	DefaultLedgerMaxValues = 200
	// DefaultLedgerMaxRecent bounds the recent-response ring.
	DefaultLedgerMaxRecent = 10

	jsonPathMaxDepth    = 4
	jsonPathMaxElements = 3
)

// defaultParamPatterns marks argument names that plausibly reference a value
// produced by an earlier call. Matching is over the normalized name.
var defaultParamPatterns = []string{
	"id", "name", "key", "path", "uri", "url", "token", "ref", "handle", "cursor",
}

// LedgerConfig configures a session ledger.
type LedgerConfig struct {
	Enabled       bool
	MaxValues     int
	MaxRecent     int
	ParamPatterns []string
}

// DefaultLedgerConfig returns the standard ledger configuration.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Enabled:       true,
		MaxValues:     DefaultLedgerMaxValues,
		MaxRecent:     DefaultLedgerMaxRecent,
		ParamPatterns: defaultParamPatterns,
	}
}

// StoredValue is a value extracted from a tool response together with the
// tool that produced it.
type StoredValue struct {
	Value      any    `json:"value"`
	SourceTool string `json:"sourceTool"`
}

type recentResponse struct {
	Tool  string
	Value any
}

// SessionLedger propagates values from earlier tool responses into later tool
// call arguments within one probe session. It is single-writer state: each
// parallel session owns its own instance, and instances are never shared.
type SessionLedger struct {
	cfg    LedgerConfig
	flat   map[string]StoredValue
	paths  map[string]StoredValue
	recent []recentResponse
}

// NewSessionLedger creates a ledger for one session.
func NewSessionLedger(cfg LedgerConfig) *SessionLedger {
	if cfg.MaxValues <= 0 {
		cfg.MaxValues = DefaultLedgerMaxValues
	}
	if cfg.MaxRecent <= 0 {
		cfg.MaxRecent = DefaultLedgerMaxRecent
	}
	if len(cfg.ParamPatterns) == 0 {
		cfg.ParamPatterns = defaultParamPatterns
	}
	return &SessionLedger{
		cfg:   cfg,
		flat:  make(map[string]StoredValue),
		paths: make(map[string]StoredValue),
	}
}

// Size returns the number of flattened keys currently stored.
func (l *SessionLedger) Size() int {
	return len(l.flat)
}

// ApplyState substitutes stored values into arguments whose names look like
// shared references. It returns the names of substituted arguments, in the
// order they were applied, and is a no-op when sharing is disabled. Values
// recorded by tool itself are never fed back into it: repeat probes of a tool
// must exercise its declared arguments, not echo its own last response.
func (l *SessionLedger) ApplyState(tool string, args map[string]any) []string {
	if !l.cfg.Enabled || len(args) == 0 {
		return nil
	}
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var substituted []string
	for _, name := range names {
		if !l.paramLooksShared(name) {
			continue
		}
		value, ok := l.FindMatchingValue(name)
		if !ok || value.SourceTool == tool {
			continue
		}
		args[name] = value.Value
		substituted = append(substituted, name)
	}
	return substituted
}

// RecordResponse extracts values from a successful textual JSON response.
// Error results, binary-only results, and unparsable text are silently
// skipped so a misbehaving server cannot corrupt session state.
func (l *SessionLedger) RecordResponse(tool string, result ToolResult) {
	if !l.cfg.Enabled || result.IsError {
		return
	}
	text, ok := ExtractText(result)
	if !ok {
		return
	}
	parsed, ok := parseStrictJSON(text)
	if !ok {
		return
	}

	l.flattenInto(tool, "", parsed)
	l.extractPathsInto(tool, "$", parsed, 1)

	l.recent = append([]recentResponse{{Tool: tool, Value: parsed}}, l.recent...)
	if len(l.recent) > l.cfg.MaxRecent {
		l.recent = l.recent[:l.cfg.MaxRecent]
	}
}

// FindMatchingValue resolves an argument name against stored state. Output
// field names rarely match input argument names exactly, so resolution falls
// through several strategies: direct JSONPath lookup (stored paths first,
// then recent responses newest-first), normalized exact match, normalized
// suffix match, and finally reinterpreting the name as a top-level path.
// A miss returns ok=false and never an error.
func (l *SessionLedger) FindMatchingValue(param string) (StoredValue, bool) {
	if looksLikeJSONPath(param) {
		if value, ok := l.resolveStoredPath(param); ok {
			return value, true
		}
	}

	norm := normalizeParam(param)
	if norm != "" {
		if value, ok := matchNormalized(l.flat, norm, true); ok {
			return value, true
		}
		if value, ok := matchNormalized(l.paths, norm, true); ok {
			return value, true
		}
		if value, ok := matchNormalized(l.flat, norm, false); ok {
			return value, true
		}
		if value, ok := matchNormalized(l.paths, norm, false); ok {
			return value, true
		}
	}

	if !looksLikeJSONPath(param) {
		if value, ok := l.resolveStoredPath("$." + param); ok {
			return value, true
		}
	}
	return StoredValue{}, false
}

func (l *SessionLedger) resolveStoredPath(path string) (StoredValue, bool) {
	if value, ok := l.paths[path]; ok {
		return value, true
	}
	for _, response := range l.recent {
		if resolved, ok := resolveJSONPath(response.Value, path); ok {
			return StoredValue{Value: resolved, SourceTool: response.Tool}, true
		}
	}
	return StoredValue{}, false
}

func (l *SessionLedger) paramLooksShared(name string) bool {
	if looksLikeJSONPath(name) {
		return true
	}
	norm := normalizeParam(name)
	for _, pattern := range l.cfg.ParamPatterns {
		if strings.Contains(norm, pattern) {
			return true
		}
	}
	return false
}

// flattenInto records leaf values under both their dotted full path and their
// bare field name. Arrays are reduced to the shape of their first element.
// New keys past the configured bound are dropped, not evicted.
func (l *SessionLedger) flattenInto(tool, prefix string, value any) {
	switch typed := value.(type) {
	case map[string]any:
		keys := sortedKeys(typed)
		for _, key := range keys {
			child := key
			if prefix != "" {
				child = prefix + "." + key
			}
			l.flattenInto(tool, child, typed[key])
		}
	case []any:
		if len(typed) > 0 {
			l.flattenInto(tool, prefix, typed[0])
		}
	default:
		if prefix == "" {
			return
		}
		l.insertFlat(prefix, StoredValue{Value: value, SourceTool: tool})
		if idx := strings.LastIndex(prefix, "."); idx >= 0 {
			l.insertFlat(prefix[idx+1:], StoredValue{Value: value, SourceTool: tool})
		}
	}
}

func (l *SessionLedger) insertFlat(key string, value StoredValue) {
	if _, exists := l.flat[key]; !exists && len(l.flat) >= l.cfg.MaxValues {
		return
	}
	l.flat[key] = value
}

// extractPathsInto records scalar leaves under their exact JSONPath. Arrays
// expand up to jsonPathMaxElements entries and recursion stops past
// jsonPathMaxDepth levels.
func (l *SessionLedger) extractPathsInto(tool, path string, value any, depth int) {
	if depth > jsonPathMaxDepth {
		return
	}
	switch typed := value.(type) {
	case map[string]any:
		for _, key := range sortedKeys(typed) {
			l.extractPathsInto(tool, path+"."+key, typed[key], depth+1)
		}
	case []any:
		limit := len(typed)
		if limit > jsonPathMaxElements {
			limit = jsonPathMaxElements
		}
		for i := 0; i < limit; i++ {
			l.extractPathsInto(tool, path+"["+strconv.Itoa(i)+"]", typed[i], depth+1)
		}
	default:
		l.insertPath(path, StoredValue{Value: value, SourceTool: tool})
	}
}

func (l *SessionLedger) insertPath(path string, value StoredValue) {
	if _, exists := l.paths[path]; !exists && len(l.paths) >= l.cfg.MaxValues {
		return
	}
	l.paths[path] = value
}

func matchNormalized(values map[string]StoredValue, norm string, exact bool) (StoredValue, bool) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		candidate := normalizeParam(key)
		if exact && candidate == norm {
			return values[key], true
		}
		if !exact && candidate != norm && strings.HasSuffix(candidate, norm) {
			return values[key], true
		}
	}
	return StoredValue{}, false
}

// normalizeParam lowercases and strips everything but letters and digits so
// "userId", "user_id" and "data.user.id" can be compared.
func normalizeParam(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func looksLikeJSONPath(name string) bool {
	return strings.HasPrefix(name, "$.") || strings.HasPrefix(name, "$[")
}

type pathStep struct {
	key     string
	index   int
	isIndex bool
}

func parseJSONPath(path string) ([]pathStep, bool) {
	if !strings.HasPrefix(path, "$") {
		return nil, false
	}
	rest := path[1:]
	var steps []pathStep
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end == -1 {
				end = len(rest)
			}
			if end == 0 {
				return nil, false
			}
			steps = append(steps, pathStep{key: rest[:end]})
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end <= 1 {
				return nil, false
			}
			index, err := strconv.Atoi(rest[1:end])
			if err != nil || index < 0 {
				return nil, false
			}
			steps = append(steps, pathStep{index: index, isIndex: true})
			rest = rest[end+1:]
		default:
			return nil, false
		}
	}
	return steps, len(steps) > 0
}

func resolveJSONPath(doc any, path string) (any, bool) {
	steps, ok := parseJSONPath(path)
	if !ok {
		return nil, false
	}
	current := doc
	for _, step := range steps {
		if step.isIndex {
			arr, ok := current.([]any)
			if !ok || step.index >= len(arr) {
				return nil, false
			}
			current = arr[step.index]
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[step.key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// parseStrictJSON decodes text as a single JSON document with numbers kept
// as json.Number. Trailing non-whitespace fails the parse.
func parseStrictJSON(text string) (any, bool) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()
	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, false
	}
	var trailing any
	if err := decoder.Decode(&trailing); err != io.EOF {
		return nil, false
	}
	return parsed, true
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
