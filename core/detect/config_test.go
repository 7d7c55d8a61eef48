package detect

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRules(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		path := writeRules(t, `
rules:
  - media_type: application/x-custom
    offset: 2
    pattern: '"CU" ?? 01'
  - media_type: application/x-other
    pattern: 'AB CD'
`)
		rules, err := LoadRules(path)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, Rule{MediaType: "application/x-custom", Offset: 2, Pattern: Pattern{'C', 'U', Wild, 0x01}}, rules[0])
		assert.Equal(t, 0, rules[1].Offset)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadRules(filepath.Join(t.TempDir(), "none.yaml"))
		assert.Error(t, err)
	})

	t.Run("BadYAML", func(t *testing.T) {
		_, err := LoadRules(writeRules(t, "rules: [oops"))
		assert.Error(t, err)
	})

	t.Run("BadPattern", func(t *testing.T) {
		_, err := LoadRules(writeRules(t, "rules:\n  - media_type: a/b\n    pattern: 'XYZ'\n"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		m, err := NewFromConfig(Config{})
		require.NoError(t, err)
		assert.Equal(t, DefaultType, m.DefaultType())
		assert.Equal(t, DefaultMaxPrefix, m.MaxPrefix())
		assert.Equal(t, "image/png", m.Resolve([]byte("\x89PNG\r\n\x1a\n")))
	})

	t.Run("ExtraRules", func(t *testing.T) {
		path := writeRules(t, "rules:\n  - media_type: application/x-custom\n    pattern: '\"CUST\"'\n")
		m, err := NewFromConfig(Config{DefaultType: "application/x-unknown", MaxPrefix: 1024, RulesFile: path})
		require.NoError(t, err)
		assert.Equal(t, "application/x-custom", m.Resolve([]byte("CUST....")))
		assert.Equal(t, "application/x-unknown", m.Resolve([]byte("none")))
	})

	t.Run("ExtraRuleContradictsDefault", func(t *testing.T) {
		path := writeRules(t, "rules:\n  - media_type: image/x-fake\n    pattern: '89 50 4E 47 0D 0A 1A 0A'\n")
		_, err := NewFromConfig(Config{RulesFile: path})
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})

	t.Run("RuleIndexCountsDefaultsFirst", func(t *testing.T) {
		base := len(DefaultRules())
		cases := map[string]struct {
			doc  string
			want int
		}{
			"BadPattern": {
				doc:  "rules:\n  - media_type: a/ok\n    pattern: '\"OK\"'\n  - media_type: a/bad\n    pattern: 'XYZ'\n",
				want: base + 1,
			},
			"EmptyMediaType": {
				doc:  "rules:\n  - media_type: ''\n    pattern: '\"EMPTY\"'\n",
				want: base,
			},
			"Contradiction": {
				doc:  "rules:\n  - media_type: a/ok\n    pattern: '\"OK\"'\n  - media_type: image/x-fake\n    pattern: '89 50 4E 47 0D 0A 1A 0A'\n",
				want: base + 1,
			},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := NewFromConfig(Config{RulesFile: writeRules(t, tc.doc)})
				var cfgErr *ConfigError
				require.True(t, errors.As(err, &cfgErr))
				assert.Equal(t, tc.want, cfgErr.Rule)
			})
		}

		// LoadRules alone numbers from the top of the file.
		_, err := LoadRules(writeRules(t, cases["BadPattern"].doc))
		var cfgErr *ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, 1, cfgErr.Rule)
	})

	t.Run("PrefixTooSmallForDefaults", func(t *testing.T) {
		_, err := NewFromConfig(Config{MaxPrefix: 64})
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}
