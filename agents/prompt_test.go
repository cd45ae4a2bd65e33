package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetrievalPrompt(t *testing.T) {
	plain := retrievalPrompt("what are the fees", nil)
	assert.True(t, strings.HasSuffix(plain, "what are the fees"))
	assert.NotContains(t, plain, "Previous conversation context")

	withHistory := retrievalPrompt("and for students", []string{"what are the fees", "is there a discount"})
	assert.Contains(t, withHistory, "- what are the fees\n")
	assert.Contains(t, withHistory, "- is there a discount\n")
	assert.True(t, strings.HasSuffix(withHistory, "Current question: and for students"))
}
