package delivery

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// words returns n words of size letters each, joined by single spaces.
func words(n, size int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat(string(rune('A'+i)), size)
	}
	return strings.Join(out, " ")
}

func TestPlan_SingleChunkHasNoHeader(t *testing.T) {
	plan, err := NewPlanner(100).Plan("hello")
	require.NoError(t, err)
	assert.Equal(t, KindInline, plan.Kind)
	assert.Equal(t, []string{"hello"}, plan.Units)
}

func TestPlan_MoreThanThresholdBecomesAttachment(t *testing.T) {
	text := words(7, 10)
	chunks, err := Split(text, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 7)

	plan, err := NewPlanner(10).Plan(text)
	require.NoError(t, err)
	assert.Equal(t, KindAttachment, plan.Kind)
	assert.Equal(t, text, plan.Content)
	assert.Equal(t, DefaultFilename, plan.Filename)
	assert.Empty(t, plan.Units)
}

func TestPlan_ThresholdStaysInline(t *testing.T) {
	text := words(6, 10)
	chunks, err := Split(text, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 6)

	plan, err := NewPlanner(10).Plan(text)
	require.NoError(t, err)
	require.Equal(t, KindInline, plan.Kind)

	var headered []string
	for _, u := range plan.Units {
		assert.LessOrEqual(t, Len(u), 10, "unit %q", u)
		if strings.HasPrefix(u, "part ") {
			headered = append(headered, u)
		}
	}
	require.Len(t, headered, 6)
	for i, u := range headered {
		assert.True(t, strings.HasPrefix(u, fmt.Sprintf("part %d/6\n", i+1)), "unit %q", u)
	}
}

func TestPlan_ResplitsWhenHeaderOverflows(t *testing.T) {
	a := strings.Repeat("A", 15)
	b := strings.Repeat("B", 15)

	plan, err := NewPlanner(20).Plan(a + "\n\n" + b)
	require.NoError(t, err)
	require.Equal(t, KindInline, plan.Kind)
	assert.Equal(t, []string{
		"part 1/2\n" + strings.Repeat("A", 11),
		"AAAA",
		"part 2/2\n" + strings.Repeat("B", 11),
		"BBBB",
	}, plan.Units)
	for _, u := range plan.Units {
		assert.LessOrEqual(t, Len(u), 20)
	}
}

func TestPlan_HeaderFits(t *testing.T) {
	a := strings.Repeat("A", 15)
	b := strings.Repeat("B", 15)

	plan, err := NewPlanner(30).Plan(a + "\n\n" + b)
	require.NoError(t, err)
	assert.Equal(t, []string{"part 1/2\n" + a, "part 2/2\n" + b}, plan.Units)
}

func TestPlan_CustomHeader(t *testing.T) {
	p := NewPlanner(12)
	p.Header = func(i, n int) string { return fmt.Sprintf("[%d] ", i) }

	plan, err := p.Plan("one two three four")
	require.NoError(t, err)
	assert.Equal(t, []string{"[1] one two", "[2] three", "four"}, plan.Units)
}

func TestPlan_InvalidLimit(t *testing.T) {
	_, err := Planner{Limit: 0}.Plan("abc")
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = Planner{Limit: -3}.Plan("abc")
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestPlan_HeaderLongerThanLimit(t *testing.T) {
	_, err := NewPlanner(5).Plan("hi")
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestPlan_EmptyInput(t *testing.T) {
	for _, text := range []string{"", " \n "} {
		plan, err := NewPlanner(100).Plan(text)
		require.NoError(t, err)
		assert.True(t, plan.Empty())
		assert.Equal(t, KindEmpty, plan.Kind)
	}
}

func TestPlan_ZeroValueDefaults(t *testing.T) {
	plan, err := Planner{Limit: 10}.Plan(words(8, 10))
	require.NoError(t, err)
	assert.Equal(t, KindAttachment, plan.Kind)
	assert.Equal(t, DefaultFilename, plan.Filename)
}

func TestPlan_WithFilename(t *testing.T) {
	p := NewPlanner(10).WithFilename("scan.txt")
	plan, err := p.Plan(words(9, 10))
	require.NoError(t, err)
	assert.Equal(t, "scan.txt", plan.Filename)
	assert.Equal(t, DefaultFilename, NewPlanner(10).Filename)
}

func TestPlan_JSONKind(t *testing.T) {
	b, err := json.Marshal(Plan{Kind: KindInline, Units: []string{"x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"inline","units":["x"]}`, string(b))
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, 4046, LimitFor(TelegramMaxMessage, DefaultMargin))
}
