package domain

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func textResult(text string) ToolResult {
	return ToolResult{Content: []ContentBlock{TextContent{Text: text}}}
}

func TestSessionLedger_PropagatesIDBetweenCalls(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("create_user", textResult(`{"id":"abc"}`))

	args := map[string]any{"id": "placeholder"}
	substituted := ledger.ApplyState("get_user", args)

	require.Equal(t, []string{"id"}, substituted)
	require.Equal(t, "abc", args["id"])
}

func TestSessionLedger_OwnOutputNotSubstituted(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("create_user", textResult(`{"id":"abc"}`))

	args := map[string]any{"id": "placeholder"}
	substituted := ledger.ApplyState("create_user", args)

	require.Empty(t, substituted)
	require.Equal(t, "placeholder", args["id"])

	// The same value still reaches a different consumer.
	require.Equal(t, []string{"id"}, ledger.ApplyState("get_user", args))
	require.Equal(t, "abc", args["id"])
}

func TestSessionLedger_NormalizedSuffixMatch(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("create_user", textResult(`{"data":{"user":{"id":"u-1"}}}`))

	value, ok := ledger.FindMatchingValue("userId")
	require.True(t, ok)
	require.Equal(t, "u-1", value.Value)
	require.Equal(t, "create_user", value.SourceTool)
}

func TestSessionLedger_JSONPathLookup(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("list_items", textResult(`{"items":[{"sku":"X1"},{"sku":"X2"}]}`))

	value, ok := ledger.FindMatchingValue("$.items[1].sku")
	require.True(t, ok)
	require.Equal(t, "X2", value.Value)

	_, ok = ledger.FindMatchingValue("$.items[9].sku")
	require.False(t, ok)
}

func TestSessionLedger_TopLevelPathFallback(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("whoami", textResult(`{"account":"acct-7"}`))

	value, ok := ledger.FindMatchingValue("account")
	require.True(t, ok)
	require.Equal(t, "acct-7", value.Value)
}

func TestSessionLedger_SkipsErrorAndBinaryResults(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("bad", ToolResult{
		Content: []ContentBlock{TextContent{Text: `{"id":"x"}`}},
		IsError: true,
	})
	ledger.RecordResponse("img", ToolResult{
		Content: []ContentBlock{BinaryContent{Data: []byte{0xFF, 0xD8}, MIMEType: "image/jpeg"}},
	})
	ledger.RecordResponse("junk", textResult("not json at all"))

	require.Zero(t, ledger.Size())
	_, ok := ledger.FindMatchingValue("id")
	require.False(t, ok)
}

func TestSessionLedger_DecodesTextualBase64Blocks(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("export", ToolResult{
		Content: []ContentBlock{BinaryContent{Data: []byte(`{"token":"tok-1"}`), MIMEType: "application/json"}},
	})

	value, ok := ledger.FindMatchingValue("token")
	require.True(t, ok)
	require.Equal(t, "tok-1", value.Value)
}

func TestSessionLedger_BoundStopsGrowth(t *testing.T) {
	cfg := DefaultLedgerConfig()
	cfg.MaxValues = 10
	ledger := NewSessionLedger(cfg)

	for i := 0; i < 30; i++ {
		ledger.RecordResponse("gen", textResult(fmt.Sprintf(`{"field%02d":%d}`, i, i)))
	}

	require.Equal(t, 10, ledger.Size())
}

func TestSessionLedger_RecentRingEvictsOldest(t *testing.T) {
	cfg := DefaultLedgerConfig()
	cfg.MaxRecent = 2
	cfg.MaxValues = 1
	ledger := NewSessionLedger(cfg)

	// Fill both key maps to capacity so path lookups must fall back to the
	// recent-response ring.
	ledger.RecordResponse("filler", textResult(`{"filler":1}`))
	ledger.RecordResponse("first", textResult(`[{"old":"o"}]`))
	ledger.RecordResponse("second", textResult(`[{"mid":"m"}]`))
	ledger.RecordResponse("third", textResult(`[{"new":"n"}]`))

	value, ok := ledger.FindMatchingValue("$[0].new")
	require.True(t, ok)
	require.Equal(t, "n", value.Value)
	require.Equal(t, "third", value.SourceTool)

	// The first response fell off the back of the ring.
	_, ok = ledger.FindMatchingValue("$[0].old")
	require.False(t, ok)
}

func TestSessionLedger_DisabledIsNoop(t *testing.T) {
	cfg := DefaultLedgerConfig()
	cfg.Enabled = false
	ledger := NewSessionLedger(cfg)

	ledger.RecordResponse("create", textResult(`{"id":"abc"}`))
	args := map[string]any{"id": "keep"}
	substituted := ledger.ApplyState("get", args)

	require.Nil(t, substituted)
	require.Equal(t, "keep", args["id"])
}

func TestSessionLedger_ArraysFlattenToFirstElement(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("list", textResult(`{"users":[{"userId":"first"},{"userId":"second"}]}`))

	value, ok := ledger.FindMatchingValue("userId")
	require.True(t, ok)
	require.Equal(t, "first", value.Value)
}

func TestSessionLedger_NumbersSurviveRoundTrip(t *testing.T) {
	ledger := NewSessionLedger(DefaultLedgerConfig())

	ledger.RecordResponse("count", textResult(`{"total":12345678901234}`))

	value, ok := ledger.FindMatchingValue("total")
	require.True(t, ok)
	require.Equal(t, json.Number("12345678901234"), value.Value)
}

func TestParseJSONPath(t *testing.T) {
	steps, ok := parseJSONPath("$.a[2].b")
	require.True(t, ok)
	require.Len(t, steps, 3)
	require.Equal(t, "a", steps[0].key)
	require.True(t, steps[1].isIndex)
	require.Equal(t, 2, steps[1].index)
	require.Equal(t, "b", steps[2].key)

	_, ok = parseJSONPath("a.b")
	require.False(t, ok)
	_, ok = parseJSONPath("$.")
	require.False(t, ok)
	_, ok = parseJSONPath("$[x]")
	require.False(t, ok)
}
