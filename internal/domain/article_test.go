package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArticle_Validate(t *testing.T) {
	valid := Article{
		URL:     "https://g1.globo.com/news/1",
		Title:   "Headline",
		Content: "Body of the article.",
	}
	assert.NoError(t, valid.Validate())

	missingURL := valid
	missingURL.URL = ""
	assert.ErrorIs(t, missingURL.Validate(), ErrEmptyArticleURL)

	missingTitle := valid
	missingTitle.Title = ""
	assert.ErrorIs(t, missingTitle.Validate(), ErrEmptyArticleTitle)

	missingContent := valid
	missingContent.Content = ""
	assert.ErrorIs(t, missingContent.Validate(), ErrEmptyArticleContent)
}

func TestArticle_EligibleForPublish(t *testing.T) {
	assert.True(t, (&Article{}).EligibleForPublish())
	assert.False(t, (&Article{Published: true}).EligibleForPublish())
	assert.True(t, (&Article{PublishAttempts: MaxPublishAttempts - 1}).EligibleForPublish())
	assert.False(t, (&Article{PublishAttempts: MaxPublishAttempts}).EligibleForPublish())
}
