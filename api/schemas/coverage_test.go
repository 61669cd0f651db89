package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

// TestConstants pins the values that appear in config files and flags.
func TestConstants(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abort", string(schemas.MalformedAbort))
	assert.Equal(t, "skip", string(schemas.MalformedSkip))
}

func TestRangeWidth(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(10), schemas.Range{StartOffset: 5, EndOffset: 15}.Width())
	assert.Equal(t, int64(0), schemas.Range{StartOffset: 5, EndOffset: 5}.Width())
}

// TestJSONTags verifies the wire names used by the DevTools profiler format.
func TestJSONTags(t *testing.T) {
	t.Parallel()

	t.Run("Range", func(t *testing.T) {
		var r schemas.Range
		require.NoError(t, json.Unmarshal([]byte(`{"startOffset":1,"endOffset":9,"count":3}`), &r))
		assert.Equal(t, schemas.Range{StartOffset: 1, EndOffset: 9, Count: 3}, r)
	})

	t.Run("DisjointRange", func(t *testing.T) {
		data, err := json.Marshal(schemas.DisjointRange{Start: 0, End: 10})
		require.NoError(t, err)
		assert.JSONEq(t, `{"start":0,"end":10}`, string(data))
	})

	t.Run("CoverageReport omits empty skipped list", func(t *testing.T) {
		data, err := json.Marshal(schemas.CoverageReport{RunID: "r"})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "skipped")
	})
}
