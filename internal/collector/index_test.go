package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexNamingConstants(t *testing.T) {
	assert.Equal(t, "hive-logs", IndexName)
	assert.Equal(t, "hive-logs-template", TemplateName)
}

func TestNewIndexBuildsClientFromConfig(t *testing.T) {
	idx, err := NewIndex(IndexConfig{Host: "https://127.0.0.1:9200", Username: "admin", Password: "s3cret!"})
	assert.NoError(t, err)
	assert.NotNil(t, idx)
	assert.NotNil(t, idx.client)
}
