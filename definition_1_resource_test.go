package taskpacker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorsResource(t *testing.T) {
	t.Run(
		"1. nil params",
		func(t *testing.T) {
			res, errCr := NewResource(nil)
			require.Error(t, errCr)
			require.Nil(t, res)
		},
	)

	t.Run(
		"2. empty name",
		func(t *testing.T) {
			res, errCr := NewResource(
				&ParamsNewResource{
					Capacity: 2,
				},
			)
			require.Error(t, errCr)
			require.Nil(t, res)
		},
	)

	t.Run(
		"3. negative capacity",
		func(t *testing.T) {
			res, errCr := NewResource(
				&ParamsNewResource{
					Name:     "res 1",
					Capacity: -5,
				},
			)
			require.Error(t, errCr)
			require.Nil(t, res)
		},
	)
}

func TestNewResource(t *testing.T) {
	t.Run(
		"1. defaults",
		func(t *testing.T) {
			res, errCr := NewResource(
				&ParamsNewResource{
					Name: "bob",
				},
			)
			require.NoError(t, errCr)
			require.Equal(t, 1, res.Capacity)
			require.Equal(t, "bob", res.FullName)
			require.True(t, res.IsUnary())
			require.False(t, res.IsUnbounded())
		},
	)

	t.Run(
		"2. unbounded",
		func(t *testing.T) {
			res, errCr := NewResource(
				&ParamsNewResource{
					Name:     "incubator",
					FullName: "Incubator 37C",
					Capacity: CapacityUnbounded,
				},
			)
			require.NoError(t, errCr)
			require.True(t, res.IsUnbounded())
			require.Equal(t, "Incubator 37C", res.FullName)
			require.Equal(t, "incubator (capacity: inf)", res.String())
		},
	)
}

func TestTimeIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     TimeInterval
		expected bool
	}{
		{"1. disjoint", TimeInterval{0, 10}, TimeInterval{20, 30}, false},
		{"2. adjacent", TimeInterval{0, 10}, TimeInterval{10, 30}, false},
		{"3. overlapping", TimeInterval{0, 10}, TimeInterval{9, 30}, true},
		{"4. nested", TimeInterval{0, 100}, TimeInterval{10, 20}, true},
	}

	for _, tt := range tests {
		t.Run(
			tt.name,
			func(t *testing.T) {
				require.Equal(t, tt.expected, tt.a.Overlaps(tt.b))
				require.Equal(t, tt.expected, tt.b.Overlaps(tt.a))
			},
		)
	}
}
