package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Ravi Kumar", TitleCase("  RAVI   kumar "))
	assert.Equal(t, "", TitleCase("   "))
}

func TestNormalizeMobile(t *testing.T) {
	assert.Equal(t, "9876543210", NormalizeMobile("+91 98765-43210"))
	assert.Equal(t, "9876543210", NormalizeMobile("09876543210"))
	assert.Equal(t, "9876543210", NormalizeMobile("9876543210"))
}
