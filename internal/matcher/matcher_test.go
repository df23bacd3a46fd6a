package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		pattern     string
		patternType PatternType
		wantType    PatternType
		wantErr     bool
	}{
		{"valid glob", "*.txt", Glob, Glob, false},
		{"valid regex", `^\d{4}\s`, Regex, Regex, false},
		{"invalid regex", "[unclosed", Regex, Regex, true},
		{"auto detects glob", "budget-*.txt", Auto, Glob, false},
		{"auto detects regex", `(?i)continued$`, Auto, Regex, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.patternType, tt.pattern)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, m.Type())
			assert.Equal(t, tt.pattern, m.Pattern())
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		pt      PatternType
		opts    *Options
		input   string
		want    bool
	}{
		{"glob hit", "*.csv", Glob, nil, "payroll-2023.csv", true},
		{"glob miss", "*.csv", Glob, nil, "budget.txt", false},
		{"glob case insensitive", "*.CSV", Glob, &Options{CaseInsensitive: true}, "payroll.csv", true},
		{"regex case insensitive", "state operations:", Regex, &Options{CaseInsensitive: true}, "STATE OPERATIONS:", true},
		{"anchored regex", `\d{4}`, Regex, &Options{Anchored: true}, "0250 Judicial", false},
		{"unanchored regex", `\d{4}`, Regex, nil, "0250 Judicial", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MustNew(tt.pt, tt.pattern, tt.opts)
			assert.Equal(t, tt.want, m.Match(tt.input))
		})
	}
}

func TestSubmatch(t *testing.T) {
	m := MustNew(Regex, `^(\d{4})\s+(.+)$`)
	assert.Equal(t, []string{"0250 Judicial Branch", "0250", "Judicial Branch"}, m.Submatch("0250 Judicial Branch"))
	assert.Nil(t, m.Submatch("Judicial Branch"))

	g := MustNew(Glob, "*.txt")
	assert.Equal(t, []string{"a.txt"}, g.Submatch("a.txt"))
	assert.Nil(t, g.Submatch("a.csv"))
}

func TestMultiMatcher(t *testing.T) {
	mm, err := NewMultiMatcher([]string{`^(\d{4})\s+(.+?)\s+-\s+continued$`, `^(\d{4})\s+continued$`}, Regex, &Options{CaseInsensitive: true})
	require.NoError(t, err)
	assert.Equal(t, 2, mm.Len())

	assert.True(t, mm.Match("0250 Judicial Branch - Continued"))
	assert.Equal(t, "0250", mm.Submatch("0250 CONTINUED")[1])
	assert.False(t, mm.Match("0250 Judicial Branch"))

	_, err = NewMultiMatcher([]string{"ok", "(bad"}, Regex)
	assert.Error(t, err)
}

func TestFilterStrings(t *testing.T) {
	got, err := FilterStrings(Glob, "*2023*", "budget-2023.txt", "budget-2024.txt", "payroll-2023.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"budget-2023.txt", "payroll-2023.csv"}, got)

	_, err = FilterStrings(Regex, "(", "x")
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	for pattern, want := range map[string]PatternType{
		"in/budget-*":       Glob,
		"payroll-202?.csv":  Glob,
		`budget\.txt$`:      Regex,
		`payroll-20(22|23)`: Regex,
		"[abc].txt":         Glob,
		`^0250`:             Regex,
	} {
		assert.Equal(t, want, Detect(pattern), pattern)
	}
	assert.Equal(t, "regex", Regex.String())
	assert.Equal(t, "unknown", PatternType(9).String())
}
