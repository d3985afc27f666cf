package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdel7517/ragdocs/internal/logger"
)

func TestGetEnv(t *testing.T) {
	log := logger.NewNop()

	assert.Equal(t, "fallback", GetEnv("RAGDOCS_TEST_MISSING", "fallback", log))

	t.Setenv("RAGDOCS_TEST_SET", "from-env")
	assert.Equal(t, "from-env", GetEnv("RAGDOCS_TEST_SET", "fallback", log))

	// nil logger must be safe; several call sites pass one.
	assert.Equal(t, "from-env", GetEnv("RAGDOCS_TEST_SET", "fallback", nil))
}

func TestGetEnvAsInt(t *testing.T) {
	log := logger.NewNop()

	assert.Equal(t, 42, GetEnvAsInt("RAGDOCS_TEST_MISSING_INT", 42, log))

	t.Setenv("RAGDOCS_TEST_INT", "17")
	assert.Equal(t, 17, GetEnvAsInt("RAGDOCS_TEST_INT", 42, log))

	t.Setenv("RAGDOCS_TEST_BAD_INT", "not a number")
	assert.Equal(t, 42, GetEnvAsInt("RAGDOCS_TEST_BAD_INT", 42, log))
}
