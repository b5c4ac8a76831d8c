package disposable_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kzn-tools/kaizen/disposable"
	"github.com/kzn-tools/kaizen/model"
)

func TestDefaultCatalogExactMatchIsHighConfidence(t *testing.T) {
	cat := disposable.Default()
	conf, ok := cat.Match("fs.createReadStream")
	assert.True(t, ok)
	assert.Equal(t, model.ConfidenceHigh, conf)
}

func TestDefaultCatalogHeuristicSuffixIsMediumConfidence(t *testing.T) {
	cat := disposable.Default()
	conf, ok := cat.Match("redis.openConnection")
	assert.True(t, ok)
	assert.Equal(t, model.ConfidenceMedium, conf)
}

func TestUnrelatedCalleeDoesNotMatch(t *testing.T) {
	cat := disposable.Default()
	_, ok := cat.Match("Math.max")
	assert.False(t, ok)
}
