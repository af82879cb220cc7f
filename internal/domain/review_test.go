package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"review_pulse/internal/domain"
)

func TestNewRawRow(t *testing.T) {
	r := domain.NewRawRow([]string{"id", "text", "id", "rating"}, []string{"1", "hi", "dup"})
	assert.Equal(t, []string{"id", "text", "rating"}, r.Keys)
	assert.Equal(t, "1", r.Values["id"], "first duplicate header wins")
	assert.Equal(t, "", r.Values["rating"])
}

func TestParseSentiment(t *testing.T) {
	s, ok := domain.ParseSentiment("  NEGATIVE ")
	assert.True(t, ok)
	assert.Equal(t, domain.Negative, s)

	_, ok = domain.ParseSentiment("mixed")
	assert.False(t, ok)
}

func TestCategories(t *testing.T) {
	assert.Equal(t, []string{"Cleanliness", "Accuracy", "Check-in", "Communication", "Location", "Value", "Comfort", "Facilities"}, domain.CategoryNames())
	_, ok := domain.CategoryByName("cleanliness")
	assert.False(t, ok, "names are exact")
}

func TestTagInput(t *testing.T) {
	assert.False(t, domain.TagInput{}.Present())
	assert.True(t, domain.TagScalar("a").Present())
	assert.True(t, domain.TagSequence([]string{}).Present())
	assert.False(t, domain.TagScalar("a").IsSequence())
}

func TestIsCategoryTag(t *testing.T) {
	assert.True(t, domain.IsCategoryTag("accuracy"))
	assert.True(t, domain.IsCategoryTag(" Check-in "))
	assert.True(t, domain.IsCategoryTag("General Complaint"))
	assert.False(t, domain.IsCategoryTag("street noise"))
}
