package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name    string
		a       string
		b       string
		want    int
		wantErr bool
	}{
		{name: "equal", a: "1.0", b: "1.0", want: 0},
		{name: "minor bump", a: "1.1", b: "1.0", want: 1},
		{name: "major beats minor", a: "2.0", b: "1.9", want: 1},
		{name: "numeric not lexicographic", a: "1.10", b: "1.9", want: 1},
		{name: "lesser", a: "1.2", b: "1.3", want: -1},
		{name: "missing minor", a: "1", b: "1.0", wantErr: true},
		{name: "non-numeric", a: "1.x", b: "1.0", wantErr: true},
		{name: "semver form rejected", a: "1.0.0", b: "1.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompareVersions(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			switch {
			case tt.want > 0:
				assert.Positive(t, got)
			case tt.want < 0:
				assert.Negative(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestConditionValueJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ConditionValue
	}{
		{name: "string", input: `"high"`, want: StringValue("high")},
		{name: "number", input: `42.5`, want: NumberValue(42.5)},
		{name: "bool", input: `true`, want: BoolValue(true)},
		{name: "list", input: `["daily","weekly"]`, want: ListValue("daily", "weekly")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ConditionValue
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)

			out, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, tt.input, string(out))
		})
	}
}

func TestConditionValueJSONRejectsMixedList(t *testing.T) {
	var v ConditionValue
	err := json.Unmarshal([]byte(`["daily", 3]`), &v)
	assert.Error(t, err)
}

func TestResolveTargetCategory(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		want          TransformationCategory
		wantSanitized bool
		wantErr       bool
	}{
		{name: "scalar string", raw: `"RPA"`, want: CategoryRPA},
		{name: "one-element array is sanitized", raw: `["Digitise"]`, want: CategoryDigitise, wantSanitized: true},
		{name: "multi-element array takes first", raw: `["Eliminate","Simplify"]`, want: CategoryEliminate, wantSanitized: true},
		{name: "empty array", raw: `[]`, wantErr: true},
		{name: "unknown category", raw: `"Outsource"`, wantErr: true},
		{name: "missing", raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := RuleAction{Type: ActionOverride, TargetCategory: json.RawMessage(tt.raw)}
			got, sanitized, err := action.ResolveTargetCategory()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantSanitized, sanitized)
		})
	}
}

func TestInterviewStateClone(t *testing.T) {
	state := NewInterviewState()
	state.RecordAskedRound([]string{"q1", "q2"})

	clone := state.Clone()
	clone.AskedQuestions[0] = "mutated"
	clone.RecentQuestions[0][1] = "mutated"

	assert.Equal(t, "q1", state.AskedQuestions[0])
	assert.Equal(t, "q2", state.RecentQuestions[0][1])
}

func TestRecordAskedRoundTrimsWindow(t *testing.T) {
	state := NewInterviewState()
	for i := 0; i < RecentQuestionWindow+3; i++ {
		state.RecordAskedRound([]string{"question"})
	}

	assert.Len(t, state.RecentQuestions, RecentQuestionWindow)
	assert.Equal(t, RecentQuestionWindow+3, state.QuestionsAsked)
	assert.Len(t, state.AskedQuestions, RecentQuestionWindow+3)
}
