package quality

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/many-dataflow/pkg/api"
	"github.com/systemstart/many-dataflow/pkg/record"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	f := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(f, []byte(content), 0o600))
	return f
}

func TestLoadRules(t *testing.T) {
	f := writeRules(t, `
- field: email
  type: required
- field: email
  type: pattern
  pattern: "@"
  message: email needs an @
- field: age
  type: range
  min: 0
- field: age
  type: type
  valueType: number
`)

	rules, err := LoadRules(f)

	require.NoError(t, err)
	require.Len(t, rules, 4)
	assert.Equal(t, "email needs an @", rules[1].Message)
	require.NotNil(t, rules[2].Min)
	assert.Equal(t, 0.0, *rules[2].Min)
	assert.Nil(t, rules[2].Max)
	assert.Equal(t, record.KindNumber, rules[3].ValueType)
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "- field: [", "parsing rules file"},
		{"unknown kind", "- field: a\n  type: unique\n", `unknown rule type "unique"`},
		{"custom from yaml", "- field: a\n  type: custom\n", "needs a check function"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadRules_NotFound(t *testing.T) {
	_, err := LoadRules("/nonexistent/rules.yaml")
	assert.ErrorContains(t, err, "reading rules file")
}

func TestValidateRules(t *testing.T) {
	max := 10.0
	assert.NoError(t, ValidateRules([]Rule{{Field: "a", Kind: RuleRange, Max: &max}}))
	assert.NoError(t, ValidateRules(nil))
	assert.ErrorIs(t, ValidateRules([]Rule{{Field: "a", Kind: RulePattern}}), api.ErrInvalidConfig)
}
