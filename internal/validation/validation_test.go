package validation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		known    []string
		wantRule Rule
	}{
		{"empty is required", "", []string{"a", "b"}, RuleRequired},
		{"empty before load", "", nil, RuleRequired},
		{"duplicate", "a", []string{"a", "b"}, RuleUniqueName},
		{"new name", "c", []string{"a", "b"}, ""},
		{"not loaded", "a", nil, ""},
		{"loaded empty list", "a", []string{}, ""},
		{"case differs", "A", []string{"a"}, ""},
		{"whitespace differs", " a", []string{"a"}, ""},
		{"trailing dot differs", "a.", []string{"a"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateHostname(tt.hostname, tt.known)
			if tt.wantRule == "" {
				assert.False(t, errs.HasErrors(), "unexpected errors: %v", errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, FieldHostname, errs[0].Field)
			assert.Equal(t, tt.wantRule, errs[0].Rule)
			assert.True(t, errs.Has(FieldHostname, tt.wantRule))
		})
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "", errs.Error())

	errs.Add(FieldHostname, "", RuleRequired, "This field is required.")
	assert.Equal(t, "hostname: This field is required.", errs.Error())

	errs.Add(FieldMaintenance, "x", RuleRequired, "bad")
	assert.Equal(t, "hostname: This field is required. (and 1 more errors)", errs.Error())
	assert.NotNil(t, errs.Field(FieldMaintenance))
	assert.Nil(t, errs.Field("other"))
}

func TestProperty_UniqueNameConflictIffMember(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(42)

	properties := gopter.NewProperties(parameters)

	genName := gen.RegexMatch("[a-z][a-z0-9.-]{0,12}")

	properties.Property("conflict iff hostname is in the loaded list", prop.ForAll(
		func(known []string, h string) bool {
			member := false
			for _, k := range known {
				if k == h {
					member = true
				}
			}
			errs := ValidateHostname(h, known)
			return errs.Has(FieldHostname, RuleUniqueName) == member
		},
		gen.SliceOf(genName),
		genName,
	))

	properties.Property("a picked member always conflicts", prop.ForAll(
		func(known []string, idx int) bool {
			h := known[idx%len(known)]
			return IsDuplicateHostname(h, known)
		},
		gen.SliceOfN(5, genName),
		gen.IntRange(0, 100),
	))

	properties.Property("never conflicts before the list has loaded", prop.ForAll(
		func(h string) bool {
			return !ValidateHostname(h, nil).Has(FieldHostname, RuleUniqueName)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
