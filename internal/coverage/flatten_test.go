package coverage

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/covsweep/api/schemas"
)

func rng(start, end, count int64) schemas.Range {
	return schemas.Range{StartOffset: start, EndOffset: end, Count: count}
}

func span(start, end int64) schemas.DisjointRange {
	return schemas.DisjointRange{Start: start, End: end}
}

func TestFlattenScenarios(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		ranges []schemas.Range
		want   []schemas.DisjointRange
	}{
		{
			name:   "empty input",
			ranges: nil,
			want:   []schemas.DisjointRange{},
		},
		{
			name:   "single covered range",
			ranges: []schemas.Range{rng(0, 10, 1)},
			want:   []schemas.DisjointRange{span(0, 10)},
		},
		{
			name:   "inner uncovered block",
			ranges: []schemas.Range{rng(0, 10, 1), rng(2, 5, 0)},
			want:   []schemas.DisjointRange{span(0, 2), span(5, 10)},
		},
		{
			name:   "uncovered range",
			ranges: []schemas.Range{rng(0, 10, 0)},
			want:   []schemas.DisjointRange{},
		},
		{
			name:   "adjoining ranges coalesce",
			ranges: []schemas.Range{rng(0, 5, 1), rng(5, 10, 1)},
			want:   []schemas.DisjointRange{span(0, 10)},
		},
		{
			name:   "inner covered block inside uncovered function",
			ranges: []schemas.Range{rng(0, 20, 0), rng(4, 9, 2)},
			want:   []schemas.DisjointRange{span(4, 9)},
		},
		{
			name: "nested holes and islands",
			ranges: []schemas.Range{
				rng(0, 100, 1),
				rng(10, 50, 0),
				rng(20, 30, 4),
				rng(60, 70, 0),
			},
			want: []schemas.DisjointRange{span(0, 10), span(20, 30), span(50, 60), span(70, 100)},
		},
		{
			name:   "inner block with count restores coverage without a seam",
			ranges: []schemas.Range{rng(0, 10, 1), rng(3, 6, 5)},
			want:   []schemas.DisjointRange{span(0, 10)},
		},
		{
			name:   "unit width spans are dropped",
			ranges: []schemas.Range{rng(0, 1, 1), rng(5, 6, 1), rng(10, 20, 0), rng(12, 13, 1)},
			want:   []schemas.DisjointRange{},
		},
		{
			name:   "gap between siblings stays open",
			ranges: []schemas.Range{rng(0, 4, 1), rng(6, 10, 1)},
			want:   []schemas.DisjointRange{span(0, 4), span(6, 10)},
		},
		{
			name:   "conflicting counts for one span across captures",
			ranges: []schemas.Range{rng(0, 5, 1), rng(0, 5, 0)},
			want:   []schemas.DisjointRange{span(0, 5)},
		},
		{
			name:   "conflicting counts with the unexecuted capture first",
			ranges: []schemas.Range{rng(0, 5, 0), rng(0, 5, 1)},
			want:   []schemas.DisjointRange{span(0, 5)},
		},
		{
			name:   "conflicting counts inside an unexecuted parent",
			ranges: []schemas.Range{rng(0, 10, 0), rng(2, 6, 1), rng(2, 6, 0)},
			want:   []schemas.DisjointRange{span(2, 6)},
		},
		{
			name:   "same span repeated",
			ranges: []schemas.Range{rng(0, 8, 1), rng(2, 4, 0), rng(0, 8, 1), rng(2, 4, 0)},
			want:   []schemas.DisjointRange{span(0, 2), span(4, 8)},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Flatten("test.js", tc.ranges)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlattenAcrossCaptures(t *testing.T) {
	t.Parallel()
	captures := []schemas.CoverageCapture{
		{URL: "a", Ranges: []schemas.Range{rng(0, 5, 1)}},
		{URL: "a", Ranges: []schemas.Range{rng(5, 10, 1)}},
	}
	entry, ok := MergeByURL(captures).Get("a")
	require.True(t, ok)
	assert.Equal(t, []schemas.Range{rng(0, 5, 1), rng(5, 10, 1)}, entry.Ranges)

	got, err := Flatten(entry.URL, entry.Ranges)
	require.NoError(t, err)
	assert.Equal(t, []schemas.DisjointRange{span(0, 10)}, got)
}

func TestFlattenMalformed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		ranges    []schemas.Range
		wantIndex int
		reason    string
	}{
		{"zero width", []schemas.Range{rng(0, 10, 1), rng(4, 4, 1)}, 1, "greater than start"},
		{"reversed", []schemas.Range{rng(9, 3, 1)}, 0, "greater than start"},
		{"negative start", []schemas.Range{rng(-1, 3, 1)}, 0, "negative start"},
		{"negative count", []schemas.Range{rng(0, 3, -2)}, 0, "negative hit count"},
		{"partial overlap", []schemas.Range{rng(0, 10, 1), rng(5, 15, 1)}, 0, "partially overlaps range #1"},
		{"partial overlap inside parent", []schemas.Range{rng(0, 100, 1), rng(10, 30, 1), rng(20, 40, 0)}, 1, "partially overlaps range #2"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Flatten("bad.js", tc.ranges)
			require.Error(t, err)
			assert.Nil(t, got)

			var malformed *MalformedRangeError
			require.True(t, errors.As(err, &malformed))
			assert.Equal(t, "bad.js", malformed.URL)
			assert.Equal(t, tc.ranges, malformed.Ranges)
			assert.Equal(t, tc.wantIndex, malformed.Index)
			assert.Contains(t, malformed.Reason, tc.reason)
			assert.Contains(t, err.Error(), `"bad.js"`)
		})
	}
}

func TestFlattenDoesNotModifyInput(t *testing.T) {
	t.Parallel()
	ranges := []schemas.Range{rng(5, 10, 1), rng(0, 20, 1), rng(6, 7, 0)}
	original := append([]schemas.Range(nil), ranges...)
	_, err := Flatten("a", ranges)
	require.NoError(t, err)
	assert.Equal(t, original, ranges)
}

// assertDisjoint checks ordering and that no two intervals touch.
func assertDisjoint(t *testing.T, got []schemas.DisjointRange) {
	t.Helper()
	for i, r := range got {
		assert.Greater(t, r.End-r.Start, int64(1), "interval %d too narrow", i)
		if i > 0 {
			assert.Less(t, got[i-1].End, r.Start, "intervals %d and %d touch or overlap", i-1, i)
		}
	}
}

func asUnitRanges(in []schemas.DisjointRange) []schemas.Range {
	out := make([]schemas.Range, len(in))
	for i, r := range in {
		out[i] = rng(r.Start, r.End, 1)
	}
	return out
}

// randomLaminar builds a tree of nested ranges under [start,end).
func randomLaminar(r *rand.Rand, start, end int64, depth int, out *[]schemas.Range) {
	cursor := start
	for depth < 4 && cursor < end && r.Intn(4) != 0 {
		s := cursor + int64(r.Intn(5))
		e := s + 1 + int64(r.Intn(40))
		if e > end {
			return
		}
		*out = append(*out, rng(s, e, int64(r.Intn(3))))
		if r.Intn(5) == 0 {
			// Same span reported again by a later capture.
			*out = append(*out, rng(s, e, int64(r.Intn(3))))
		}
		randomLaminar(r, s, e, depth+1, out)
		cursor = e
	}
}

func TestFlattenProperties(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		var ranges []schemas.Range
		randomLaminar(r, 0, 400, 0, &ranges)

		got, err := Flatten("prop.js", ranges)
		require.NoError(t, err)
		assertDisjoint(t, got)

		again, err := Flatten("prop.js", ranges)
		require.NoError(t, err)
		assert.Equal(t, got, again, "flatten is deterministic")

		roundTrip, err := Flatten("prop.js", asUnitRanges(got))
		require.NoError(t, err)
		if diff := cmp.Diff(got, roundTrip); diff != "" {
			t.Fatalf("round trip mismatch for %v (-first +second):\n%s", ranges, diff)
		}

		shuffled := append([]schemas.Range(nil), ranges...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		permuted, err := Flatten("prop.js", shuffled)
		require.NoError(t, err)
		if diff := cmp.Diff(got, permuted); diff != "" {
			t.Fatalf("order dependence for %v (-original +shuffled):\n%s", ranges, diff)
		}
	}
}

func TestCoveredBytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(0), CoveredBytes(nil))
	assert.Equal(t, int64(13), CoveredBytes([]schemas.DisjointRange{span(0, 10), span(20, 23)}))
}
