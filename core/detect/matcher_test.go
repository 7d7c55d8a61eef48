package detect_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"sniffstore/core/detect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const octet = "application/octet-stream"

func TestNew(t *testing.T) {
	t.Run("ValidRules", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "application/pdf", Pattern: detect.Pattern{0x25, 0x50, 0x44, 0x46}},
		}, octet, 16)
		require.NoError(t, err)
		assert.Equal(t, octet, m.DefaultType())
		assert.Equal(t, 16, m.MaxPrefix())
		assert.Len(t, m.Rules(), 1)
	})

	tests := []struct {
		name        string
		rules       []detect.Rule
		defaultType string
		maxPrefix   int
		contains    string
	}{
		{
			name:        "EmptyPattern",
			rules:       []detect.Rule{{MediaType: "a/b"}},
			defaultType: octet, maxPrefix: 8,
			contains: "pattern is empty",
		},
		{
			name:        "PatternBeyondPrefix",
			rules:       []detect.Rule{{MediaType: "a/b", Offset: 6, Pattern: detect.Pattern{1, 2, 3}}},
			defaultType: octet, maxPrefix: 8,
			contains: "beyond max prefix",
		},
		{
			name:        "NegativeOffset",
			rules:       []detect.Rule{{MediaType: "a/b", Offset: -1, Pattern: detect.Pattern{1}}},
			defaultType: octet, maxPrefix: 8,
			contains: "negative offset",
		},
		{
			name:        "TokenOutOfRange",
			rules:       []detect.Rule{{MediaType: "a/b", Pattern: detect.Pattern{1, 256}}},
			defaultType: octet, maxPrefix: 8,
			contains: "not a byte",
		},
		{
			name:        "OnlyWildcards",
			rules:       []detect.Rule{{MediaType: "a/b", Pattern: detect.Pattern{detect.Wild, detect.Wild}}},
			defaultType: octet, maxPrefix: 8,
			contains: "only wildcards",
		},
		{
			name:        "EmptyMediaType",
			rules:       []detect.Rule{{Pattern: detect.Pattern{1}}},
			defaultType: octet, maxPrefix: 8,
			contains: "media type is empty",
		},
		{
			name: "ContradictoryDuplicate",
			rules: []detect.Rule{
				{MediaType: "a/one", Offset: 2, Pattern: detect.Pattern{1, 2}},
				{MediaType: "a/two", Offset: 2, Pattern: detect.Pattern{1, 2}},
			},
			defaultType: octet, maxPrefix: 8,
			contains: "same pattern and offset as rule 0",
		},
		{
			name:        "EmptyDefaultType",
			rules:       nil,
			defaultType: "", maxPrefix: 8,
			contains: "default media type",
		},
		{
			name:        "ZeroMaxPrefix",
			rules:       nil,
			defaultType: octet, maxPrefix: 0,
			contains: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := detect.New(tt.rules, tt.defaultType, tt.maxPrefix)
			assert.Nil(t, m)
			require.Error(t, err)
			assert.True(t, errors.Is(err, detect.ErrInvalidConfig))

			var cfgErr *detect.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Contains(t, cfgErr.Error(), tt.contains)
		})
	}

	t.Run("IdenticalDuplicateCollapses", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "a/one", Pattern: detect.Pattern{1, 2}},
			{MediaType: "a/one", Pattern: detect.Pattern{1, 2}},
		}, octet, 8)
		require.NoError(t, err)
		assert.Len(t, m.Rules(), 1)
	})

	t.Run("SameBytesDifferentOffsetIsNotDuplicate", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "a/one", Offset: 0, Pattern: detect.Pattern{1, 2}},
			{MediaType: "a/two", Offset: 1, Pattern: detect.Pattern{1, 2}},
		}, octet, 8)
		require.NoError(t, err)
		assert.Len(t, m.Rules(), 2)
	})
}

func TestNew_Ordering(t *testing.T) {
	m, err := detect.New([]detect.Rule{
		{MediaType: "short", Pattern: detect.Pattern{1, 2}},
		{MediaType: "late-offset", Offset: 4, Pattern: detect.Pattern{9, 9, 9}},
		{MediaType: "wild", Pattern: detect.Pattern{1, detect.Wild, 3, 4}},
		{MediaType: "long", Pattern: detect.Pattern{1, 2, 3, 4}},
		{MediaType: "early-offset", Offset: 0, Pattern: detect.Pattern{8, 8, 8}},
		{MediaType: "first-defined", Offset: 0, Pattern: detect.Pattern{7, 7, 7}},
	}, octet, 16)
	require.NoError(t, err)

	var order []string
	for _, r := range m.Rules() {
		order = append(order, r.MediaType)
	}
	assert.Equal(t, []string{"long", "wild", "early-offset", "first-defined", "late-offset", "short"}, order)
}

func TestResolve(t *testing.T) {
	t.Run("SpecificityWins", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "generic", Pattern: detect.Pattern{0xAA, 0xBB}},
			{MediaType: "specific", Pattern: detect.Pattern{0xAA, 0xBB, 0xCC, 0xDD}},
		}, octet, 8)
		require.NoError(t, err)

		assert.Equal(t, "specific", m.Resolve([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0x00}))
		assert.Equal(t, "generic", m.Resolve([]byte{0xAA, 0xBB, 0xCC}))
	})

	t.Run("Offset", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "image/webp", Offset: 4, Pattern: detect.Pattern{0x57, 0x45, 0x42, 0x50}},
		}, octet, 8)
		require.NoError(t, err)

		assert.Equal(t, "image/webp", m.Resolve([]byte{0, 0, 0, 0, 0x57, 0x45, 0x42, 0x50}))
		assert.Equal(t, octet, m.Resolve([]byte{0x57, 0x45, 0x42, 0x50, 0, 0, 0, 0}))
	})

	t.Run("Wildcard", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "wild", Pattern: detect.Pattern{0x00, detect.Wild, 0x00, 0x0C}},
		}, octet, 8)
		require.NoError(t, err)

		assert.Equal(t, "wild", m.Resolve([]byte{0, 1, 0, 12}))
		assert.Equal(t, "wild", m.Resolve([]byte{0, 255, 0, 12}))
		assert.Equal(t, octet, m.Resolve([]byte{1, 1, 0, 12}))
	})

	t.Run("Truncation", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "two", Pattern: detect.Pattern{0x42, 0x4D}},
		}, octet, 8)
		require.NoError(t, err)

		assert.Equal(t, octet, m.Resolve([]byte{0x42}))
		assert.Equal(t, octet, m.Resolve([]byte{}))
		assert.Equal(t, octet, m.Resolve(nil))
	})

	t.Run("InputBeyondMaxPrefixIgnored", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "late", Offset: 2, Pattern: detect.Pattern{0x01, 0x02}},
		}, octet, 4)
		require.NoError(t, err)

		assert.Equal(t, "late", m.Resolve([]byte{0, 0, 1, 2, 9, 9, 9}))
	})

	t.Run("PDFScenario", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "application/pdf", Offset: 0, Pattern: detect.Pattern{0x25, 0x50, 0x44, 0x46}},
		}, octet, 8)
		require.NoError(t, err)

		assert.Equal(t, "application/pdf", m.Resolve([]byte{0x25, 0x50, 0x44, 0x46, 0x2D, 0x31}))
		assert.Equal(t, octet, m.Resolve([]byte{0x00, 0x00}))
	})

	t.Run("MatchReturnsRule", func(t *testing.T) {
		m, err := detect.New([]detect.Rule{
			{MediaType: "x/y", Offset: 1, Pattern: detect.Pattern{5}},
		}, octet, 8)
		require.NoError(t, err)

		r, ok := m.Match([]byte{0, 5})
		assert.True(t, ok)
		assert.Equal(t, "x/y", r.MediaType)
		assert.Equal(t, 1, r.Offset)

		_, ok = m.Match([]byte{5})
		assert.False(t, ok)
	})
}

func TestResolve_TotalAndDeterministic(t *testing.T) {
	m, err := detect.New(detect.DefaultRules(), octet, detect.DefaultMaxPrefix)
	require.NoError(t, err)

	known := map[string]bool{octet: true}
	for _, r := range m.Rules() {
		known[r.MediaType] = true
	}

	inputs := [][]byte{nil, {}}
	for _, fill := range []byte{0x00, 0x1F, 0x50, 0xFF} {
		for n := 1; n <= 64; n++ {
			inputs = append(inputs, bytes.Repeat([]byte{fill}, n))
		}
	}

	for _, in := range inputs {
		got := m.Resolve(in)
		assert.NotEmpty(t, got)
		assert.True(t, known[got], "unexpected type %q", got)
		assert.Equal(t, got, m.Resolve(in))
	}
}

func TestResolve_Concurrent(t *testing.T) {
	m, err := detect.New(detect.DefaultRules(), octet, detect.DefaultMaxPrefix)
	require.NoError(t, err)

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Equal(t, "image/png", m.Resolve(png))
			}
		}()
	}
	wg.Wait()
}

func TestSniff(t *testing.T) {
	m, err := detect.New([]detect.Rule{
		{MediaType: "application/pdf", Pattern: detect.MustParsePattern(`"%PDF"`)},
	}, octet, 4)
	require.NoError(t, err)

	body := "%PDF-1.7 rest of the document"
	contentType, replay, err := m.Sniff(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)

	all, err := io.ReadAll(replay)
	require.NoError(t, err)
	assert.Equal(t, body, string(all))
}

func TestDetect(t *testing.T) {
	m, err := detect.New([]detect.Rule{
		{MediaType: "image/gif", Pattern: detect.MustParsePattern(`"GIF89a"`)},
	}, octet, 8)
	require.NoError(t, err)

	got, err := m.Detect(detect.Bytes("GIF89a...."))
	require.NoError(t, err)
	assert.Equal(t, "image/gif", got)

	_, err = m.Detect(detect.Path("/definitely/not/here"))
	var readErr *detect.ReadError
	assert.True(t, errors.As(err, &readErr))
}
