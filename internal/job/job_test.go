package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindPriority(t *testing.T) {
	priority := []Kind{KindAddUri, KindRemUri, KindAddPkg, KindRemPkg, KindAddJar, KindRemJar}
	for _, k := range priority {
		assert.True(t, k.Priority(), "expected %s to be a priority kind", k)
	}

	normal := []Kind{KindCheck, KindShutdown, KindVersion, KindCodelens, KindHover}
	for _, k := range normal {
		assert.False(t, k.Priority(), "expected %s to be a normal kind", k)
	}
}

func TestKindPayloadRequirements(t *testing.T) {
	assert.True(t, KindAddUri.NeedsText())
	assert.False(t, KindRemUri.NeedsText())
	assert.False(t, KindAddPkg.NeedsText())

	assert.True(t, KindAddPkg.NeedsBase64())
	assert.True(t, KindAddJar.NeedsBase64())
	assert.False(t, KindAddUri.NeedsBase64())
	assert.False(t, KindRemPkg.NeedsBase64())
}
