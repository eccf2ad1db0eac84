package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sectionDraft = `# Best Invoicing Software

Intro paragraph.

## Key Takeaways

- one

## **Why Invoicing Software Matters**

Body.

## Comparing Pricing Plans in 2026

Body.

### Hidden fees

Nested heading is level three.

## Conclusion

Done.
`

func TestMissingSections(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		missing  []string
	}{
		{"verbatim headings", []string{"Why Invoicing Software Matters", "Conclusion"}, nil},
		{"case and emphasis", []string{"WHY INVOICING SOFTWARE MATTERS"}, nil},
		{"required contains found", []string{"Conclusion and Next Steps"}, nil},
		{"found contains required", []string{"Pricing Plans"}, nil},
		{"fuzzy prefix", []string{"Comparing Pricing Plans for Teams"}, nil},
		{"absent and dissimilar", []string{"Integrations With Accounting Tools", "Mobile Apps"}, []string{"Integrations With Accounting Tools", "Mobile Apps"}},
		{"level three ignored", []string{"Hidden Fees Explained"}, []string{"Hidden Fees Explained"}},
		{"mixed keeps order", []string{"Security Checklist", "Conclusion", "Customer Support"}, []string{"Security Checklist", "Customer Support"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, MissingSections(sectionDraft, tt.required))
		})
	}
}

func TestSimilar(t *testing.T) {
	v := NewSectionValidator(Thresholds{})

	assert.True(t, v.Similar("choosing a plan", "choosing a plan for freelancers"))
	assert.False(t, v.Similar("faq", "faq section"), "both must be at least five characters")
	assert.False(t, v.Similar("pricing", "security"))
}

func TestIsStructuralHeading(t *testing.T) {
	for _, h := range []string{"Key Takeaways", "## Table of Contents", "FAQ", "Frequently Asked Questions"} {
		assert.True(t, IsStructuralHeading(h), h)
	}
	for _, h := range []string{"Conclusion", "Pricing"} {
		assert.False(t, IsStructuralHeading(h), h)
	}
}

func TestH2Headings_SkipsCodeFences(t *testing.T) {
	md := "## Real\n\n```\n## not a heading\n```\n\n## Also Real"
	assert.Equal(t, []string{"real", "also real"}, H2Headings(md))
}
