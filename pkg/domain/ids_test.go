package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "veritas/pkg/domain-errors"
)

var parsers = map[string]func(string) (string, error){
	"user": func(s string) (string, error) {
		v, err := ParseUserID(s)
		return v.String(), err
	},
	"attempt": func(s string) (string, error) {
		v, err := ParseAttemptID(s)
		return v.String(), err
	},
	"window": func(s string) (string, error) {
		v, err := ParseWindowID(s)
		return v.String(), err
	},
	"checkpoint": func(s string) (string, error) {
		v, err := ParseCheckpointID(s)
		return v.String(), err
	},
}

func TestParseUUIDBackedIDs(t *testing.T) {
	canonical := "550e8400-e29b-41d4-a716-446655440000"
	rejected := map[string]string{
		"empty":         "",
		"blank":         "   ",
		"nil uuid":      uuid.Nil.String(),
		"not a uuid":    "attempt-42",
		"sql":           "'; DROP TABLE verification_attempts;--",
		"path":          "../../etc/passwd",
		"embedded null": "550e8400\x00-e29b-41d4-a716-446655440000",
		"oversized":     strings.Repeat("f", 1024),
	}

	for kind, parse := range parsers {
		t.Run(kind, func(t *testing.T) {
			got, err := parse(strings.ToUpper(canonical))
			require.NoError(t, err)
			assert.Equal(t, canonical, got, "ids normalise to lower case")

			for name, input := range rejected {
				_, err := parse(input)
				require.Error(t, err, name)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), name)
			}
		})
	}
}

func TestParseErrorNamesField(t *testing.T) {
	_, err := ParseWindowID("")
	assert.Equal(t, "window_id is required", dErrors.MessageOf(err))

	_, err = ParseAttemptID(uuid.Nil.String())
	assert.Equal(t, "attempt_id must not be nil", dErrors.MessageOf(err))
}

func TestNewIDsAreDistinct(t *testing.T) {
	a, b := NewAttemptID(), NewAttemptID()
	assert.NotEqual(t, a, b)
	assert.False(t, a.IsNil())
	assert.True(t, AttemptID{}.IsNil())
}

func TestParseCourseID(t *testing.T) {
	for _, key := range []string{"course-v1:edX+DemoX+2024", "edX/DemoX/Demo_Course"} {
		id, err := ParseCourseID(key)
		require.NoError(t, err)
		assert.Equal(t, key, id.String())
	}

	for _, key := range []string{"", " ", " course", "course one", "course\tone", strings.Repeat("c", 256)} {
		_, err := ParseCourseID(key)
		require.Error(t, err, "%q", key)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	}
}
