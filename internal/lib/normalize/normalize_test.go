package normalize_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/normalize"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   float64
		wantOK bool
	}{
		{name: "plain float", input: 12.5, want: 12.5, wantOK: true},
		{name: "numeric string", input: "12.50", want: 12.5, wantOK: true},
		{name: "padded string", input: " 7 ", want: 7, wantOK: true},
		{name: "json number", input: json.Number("3"), want: 3, wantOK: true},
		{name: "number decimal", input: map[string]any{"$numberDecimal": "9.99"}, want: 9.99, wantOK: true},
		{name: "number int", input: map[string]any{"$numberInt": "42"}, want: 42, wantOK: true},
		{name: "number long", input: map[string]any{"$numberLong": json.Number("100")}, want: 100, wantOK: true},
		{name: "garbage string", input: "abc", wantOK: false},
		{name: "empty string", input: "", wantOK: false},
		{name: "nil", input: nil, wantOK: false},
		{name: "NaN", input: math.NaN(), wantOK: false},
		{name: "Inf string", input: "Inf", wantOK: false},
		{name: "unknown object", input: map[string]any{"value": 1}, wantOK: false},
		{name: "bool", input: true, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalize.Number(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNumberFallbacks(t *testing.T) {
	assert.Nil(t, normalize.NumberPtr("abc"))
	assert.Nil(t, normalize.NumberPtr(nil))
	assert.Equal(t, 0.0, normalize.NumberOr("abc", 0))
	assert.Equal(t, 0.0, normalize.NumberOr(nil, 0))
	assert.Equal(t, 19.0, normalize.NumberOr("19", 0))
}

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "iso string", input: "2024-03-01T10:20:30Z", want: "2024-03-01T10:20:30.000Z"},
		{name: "offset string", input: "2024-03-01T12:20:30+02:00", want: "2024-03-01T10:20:30.000Z"},
		{name: "date only", input: "2024-03-01", want: "2024-03-01T00:00:00.000Z"},
		{name: "epoch millis", input: float64(1709288430000), want: "2024-03-01T10:20:30.000Z"},
		{name: "wrapped", input: map[string]any{"$date": "2024-03-01T10:20:30.000Z"}, want: "2024-03-01T10:20:30.000Z"},
		{name: "wrapped long", input: map[string]any{"$date": map[string]any{"$numberLong": "1709288430000"}}, want: "2024-03-01T10:20:30.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize.Date(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, normalize.Date("yesterday"))
	assert.Nil(t, normalize.Date(nil))
	assert.Nil(t, normalize.Date(""))
	assert.Nil(t, normalize.Date(map[string]any{"when": "now"}))
}

func TestID(t *testing.T) {
	assert.Equal(t, "abc", normalize.ID("abc"))
	assert.Equal(t, "15", normalize.ID(json.Number("15")))
	assert.Equal(t, "15", normalize.ID(float64(15)))
	assert.Equal(t, "665f", normalize.ID(map[string]any{"$oid": "665f"}))
	assert.Equal(t, "665f", normalize.ID(map[string]any{"_id": map[string]any{"$oid": "665f"}}))
	assert.Equal(t, "u1", normalize.ID(map[string]any{"id": "u1", "name": "x"}))
	assert.Equal(t, "", normalize.ID(map[string]any{"name": "x"}))
	assert.Equal(t, "", normalize.ID(nil))
}

func TestBool(t *testing.T) {
	for _, in := range []any{true, "yes", "Active", " enabled ", "1", float64(2)} {
		got := normalize.Bool(in)
		require.NotNil(t, got, "%v", in)
		assert.True(t, *got, "%v", in)
	}
	for _, in := range []any{false, "no", "inactive", "disabled", "0", float64(0)} {
		got := normalize.Bool(in)
		require.NotNil(t, got, "%v", in)
		assert.False(t, *got, "%v", in)
	}
	assert.Nil(t, normalize.Bool("maybe"))
	assert.Nil(t, normalize.Bool(nil))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Past Due", normalize.StatusLabel("past_due"))
	assert.Equal(t, "Active", normalize.StatusLabel("active"))
	assert.Equal(t, "On Hold Now", normalize.StatusLabel(" on-hold  now "))
	assert.Equal(t, "", normalize.StatusLabel("   "))
	assert.Nil(t, normalize.StatusLabelPtr(nil))
}

func TestUnwrap_EnvelopesYieldSameItems(t *testing.T) {
	elements := `[{"id":"1","status":"pending"},{"id":"2","status":"approved"}]`
	bodies := []string{
		elements,
		`{"results":` + elements + `}`,
		`{"items":` + elements + `}`,
		`{"data":` + elements + `}`,
		`{"rows":` + elements + `}`,
		`{"payload":` + elements + `}`,
		`{"data":{"items":` + elements + `}}`,
		`{"result":{"rows":` + elements + `}}`,
	}

	want := normalize.Unwrap(decode(t, elements))
	require.Len(t, want, 2)
	for _, body := range bodies {
		assert.Equal(t, want, normalize.Unwrap(decode(t, body)), body)
	}
}

func TestUnwrap_PriorityAndTotality(t *testing.T) {
	got := normalize.Unwrap(decode(t, `{"items":[1],"data":[1,2]}`))
	assert.Len(t, got, 2, "data has priority over items")

	assert.Equal(t, []any{}, normalize.Unwrap(nil))
	assert.Equal(t, []any{}, normalize.Unwrap("text"))
	assert.Equal(t, []any{}, normalize.Unwrap(decode(t, `{"data":{"nothing":true}}`)))
	assert.Equal(t, []any{}, normalize.Unwrap(decode(t, `{"data":{"data":{"items":[1]}}}`)), "only one level of nesting")
}

func TestUnwrapObject(t *testing.T) {
	doc := normalize.UnwrapObject(decode(t, `{"data":{"id":"u1"}}`))
	assert.Equal(t, "u1", doc["id"])

	doc = normalize.UnwrapObject(decode(t, `{"id":"u2","plan":{"slug":"pro"}}`))
	assert.Equal(t, "u2", doc["id"])

	assert.Nil(t, normalize.UnwrapObject("nope"))
}

func TestCoalesceAndFirstString(t *testing.T) {
	assert.Equal(t, "", normalize.Coalesce(nil, "", "x"))
	assert.Nil(t, normalize.Coalesce(nil, nil))

	got := normalize.FirstString(nil, "  ", 5, "x")
	require.NotNil(t, got)
	assert.Equal(t, "5", *got)
	assert.Equal(t, "pro", normalize.Path(decode(t, `{"plan":{"slug":"pro"}}`), "plan", "slug"))
	assert.Nil(t, normalize.Path("x", "plan"))
}
