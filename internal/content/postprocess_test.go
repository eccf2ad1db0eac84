package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/scribe/internal/models"
)

const siteURL = "https://ledgerly.example"

var allowList = []models.InternalLink{
	{URL: "https://ledgerly.example/blog/invoice-templates", Title: "Free Invoice Templates", FocusKeyword: "invoice templates", Slug: "invoice-templates"},
	{URL: "https://ledgerly.example/blog/late-payments", Title: "How to Handle Late Payments", FocusKeyword: "late payments", Slug: "late-payments"},
}

func TestPostProcessor_LinkHygiene(t *testing.T) {
	body := strings.Join([]string{
		"Read our [pricing page](/pricing) first.",
		"Grab [invoice templates](https://ledgerly.example/blog/invoice-templates) today.",
		"Learn about [late payments](/blog/late-payments/).",
		"Again, see [templates](https://www.ledgerly.example/blog/invoice-templates).",
		"External [IRS guidance](https://www.irs.gov/businesses) stays.",
	}, "\n\n")

	p := NewPostProcessor(siteURL, allowList, Thresholds{})
	result, report := p.Process(body)

	links := Links(result)
	require.Len(t, links, 3, "two approved links plus the external one")
	assert.Equal(t, "https://ledgerly.example/blog/invoice-templates", links[0])
	assert.Equal(t, "/blog/late-payments/", links[1])
	assert.Equal(t, "https://www.irs.gov/businesses", links[2])

	assert.Contains(t, result, "Read our pricing page first.", "unapproved anchor text is kept unlinked")
	assert.Contains(t, result, "Again, see templates.", "duplicate collapses to anchor text")
	assert.Equal(t, 1, report.LinksStripped)
	assert.Equal(t, 1, report.DuplicatesCollapsed)
}

func TestPostProcessor_ExactlyTwoApprovedLinks(t *testing.T) {
	body := "See [our roadmap](/blog/roadmap), [templates](/blog/invoice-templates), " +
		"[late fees](https://ledgerly.example/blog/late-payments) and [templates again](/blog/invoice-templates)."

	result, _ := NewPostProcessor(siteURL, allowList, Thresholds{}).Process(body)

	links := Links(result)
	assert.ElementsMatch(t, []string{"/blog/invoice-templates", "https://ledgerly.example/blog/late-payments"}, links)
	assert.Contains(t, result, "See our roadmap,")
	assert.Contains(t, result, "and templates again.")
}

func TestLinkPolicy_ResolvePlaceholders(t *testing.T) {
	policy := NewLinkPolicy(siteURL, allowList)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"anchor placeholder", "Use [[LINK:invoice templates]] now.", "Use [invoice templates](https://ledgerly.example/blog/invoice-templates) now."},
		{"anchor placeholder by title words", "See [[link: handle late payments]].", "See [handle late payments](https://ledgerly.example/blog/late-payments)."},
		{"slug placeholder", "See [this guide]({{link:late-payments}}).", "See [this guide](https://ledgerly.example/blog/late-payments)."},
		{"unknown anchor", "Try [[LINK:payroll tax]] later.", "Try payroll tax later."},
		{"unknown slug", "See [payroll]({{link:payroll}}).", "See payroll."},
		{"bare slug placeholder", "Dangling {{link:late-payments}} token.", "Dangling  token."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := policy.ResolvePlaceholders(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDedupeAllowList(t *testing.T) {
	links := []models.InternalLink{
		{URL: "https://ledgerly.example/blog/a", Title: "First"},
		{URL: "https://ledgerly.example/blog/a/", Title: "Second"},
		{URL: "https://ledgerly.example/blog/b", Title: "Third"},
	}
	deduped := DedupeAllowList(links)
	require.Len(t, deduped, 2)
	assert.Equal(t, "First", deduped[0].Title)
}

func TestReconcileTOC(t *testing.T) {
	md := `Intro.

## Table of Contents

1. [Why invoicing matters](#why-it-matters)
2. [Pricing](#pricing-plans-compared)
3. Choosing the right tool
4. [Something removed](#gone)

## Why Invoicing Matters

Body.

## Pricing Plans Compared

Body.

### Choosing the Right Tool for Freelancers

Body.
`
	result, fixed := ReconcileTOC(md)

	assert.Contains(t, result, "1. [Why Invoicing Matters](#why-invoicing-matters)")
	assert.Contains(t, result, "2. [Pricing Plans Compared](#pricing-plans-compared)")
	assert.Contains(t, result, "3. [Choosing the Right Tool for Freelancers](#choosing-the-right-tool-for-freelancers)")
	assert.Contains(t, result, "4. [Something removed](#gone)", "unmatched entries are left alone")
	assert.Equal(t, 3, fixed)
}

func TestSplitLongParagraphs(t *testing.T) {
	sentence := "Clear invoices get paid faster because clients know exactly what they owe and when it is due. "
	long := strings.TrimSpace(strings.Repeat(sentence, 12)) // ~204 words

	md := "## Heading\n\n" + long + "\n\n- " + long + "\n\n```\n" + long + "\n```"
	result, splits := SplitLongParagraphs(md, 150)

	assert.Equal(t, 1, splits)
	blocks := strings.Split(result, "\n\n")
	require.GreaterOrEqual(t, len(blocks), 4)
	assert.LessOrEqual(t, WordCount(blocks[1]), 150)
	assert.LessOrEqual(t, WordCount(blocks[2]), 150)
	assert.Equal(t, WordCount(long), WordCount(blocks[1])+WordCount(blocks[2]), "no words lost")
	assert.Contains(t, result, "- "+long, "list items are never split")
	assert.Contains(t, result, "```\n"+long+"\n```", "code blocks are never split")
}

func TestSplitLongParagraphs_EmphasisLedProse(t *testing.T) {
	sentence := "Clear invoices get paid faster because clients know exactly what they owe and when it is due. "
	long := "**Pro tip:** " + strings.TrimSpace(strings.Repeat(sentence, 10))

	result, splits := SplitLongParagraphs(long+"\n\n* "+long, 150)

	assert.Equal(t, 1, splits)
	blocks := strings.Split(result, "\n\n")
	require.Len(t, blocks, 3)
	assert.True(t, strings.HasPrefix(blocks[0], "**Pro tip:**"))
	assert.LessOrEqual(t, WordCount(blocks[0]), 150)
	assert.LessOrEqual(t, WordCount(blocks[1]), 150)
	assert.Equal(t, "* "+long, blocks[2], "bulleted items are never split")
}

func TestSplitLongParagraphs_NoBoundary(t *testing.T) {
	long := strings.Repeat("word ", 200)
	result, splits := SplitLongParagraphs(long, 150)
	assert.Equal(t, 0, splits)
	assert.Equal(t, long, result)
}
