package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqData(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestResolveDataVariable_Priority(t *testing.T) {
	ds := &Dataset{Variables: []Variable{
		{Name: "latitude", Dims: []int{2}},
		{Name: "REFC", Dims: []int{2, 2}},
		{Name: "refc", Dims: []int{2, 2}},
		{Name: "other", Dims: []int{2, 2}},
	}}

	v, err := ds.ResolveDataVariable()
	require.NoError(t, err)
	assert.Equal(t, "refc", v.Name)
}

func TestResolveDataVariable_FirstNonCoordinate(t *testing.T) {
	ds := &Dataset{Variables: []Variable{
		{Name: "time"},
		{Name: "latitude"},
		{Name: "MergedReflectivityQC"},
		{Name: "precip"},
	}}

	v, err := ds.ResolveDataVariable()
	require.NoError(t, err)
	assert.Equal(t, "MergedReflectivityQC", v.Name)
}

func TestResolveDataVariable_CoordinatesOnly(t *testing.T) {
	ds := &Dataset{Variables: []Variable{
		{Name: "latitude"}, {Name: "longitude"}, {Name: "time"},
	}}

	_, err := ds.ResolveDataVariable()
	require.Error(t, err)

	var nf *VariableNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"latitude", "longitude", "time"}, nf.Available)
	assert.Contains(t, err.Error(), "latitude, longitude, time")
}

func TestFirstMatching(t *testing.T) {
	name, ok := FirstMatching([]string{"b", "c"}, []string{"a", "c", "b"})
	assert.True(t, ok)
	assert.Equal(t, "c", name)

	_, ok = FirstMatching(nil, []string{"a"})
	assert.False(t, ok)
}

func TestCollapse2D(t *testing.T) {
	t.Run("single leading step takes index 0", func(t *testing.T) {
		v := Variable{Name: "v", Dims: []int{1, 2, 3}, Data: seqData(6)}
		g, err := v.Collapse2D()
		require.NoError(t, err)
		assert.Equal(t, Grid{Rows: 2, Cols: 3, Values: []float64{0, 1, 2, 3, 4, 5}}, g)
	})

	t.Run("multiple leading steps take the last", func(t *testing.T) {
		v := Variable{Name: "v", Dims: []int{3, 2, 2}, Data: seqData(12)}
		g, err := v.Collapse2D()
		require.NoError(t, err)
		assert.Equal(t, []float64{8, 9, 10, 11}, g.Values)
	})

	t.Run("repeats for 4-D", func(t *testing.T) {
		v := Variable{Name: "v", Dims: []int{2, 1, 1, 2}, Data: seqData(4)}
		g, err := v.Collapse2D()
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 3}, g.Values)
	})

	t.Run("1-D is rejected", func(t *testing.T) {
		_, err := Variable{Name: "v", Dims: []int{4}, Data: seqData(4)}.Collapse2D()
		assert.Error(t, err)
	})

	t.Run("short data is an error, not a panic", func(t *testing.T) {
		v := Variable{Name: "refc", Dims: []int{3, 2, 2}, Data: seqData(5)}
		require.NotPanics(t, func() {
			_, err := v.Collapse2D()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "5 values do not fill [3 2 2]")
		})
	})

	t.Run("long data is an error", func(t *testing.T) {
		_, err := Variable{Name: "v", Dims: []int{2, 2}, Data: seqData(5)}.Collapse2D()
		assert.Error(t, err)
	})

	t.Run("collapse copies data", func(t *testing.T) {
		data := seqData(4)
		g, err := Variable{Name: "v", Dims: []int{2, 2}, Data: data}.Collapse2D()
		require.NoError(t, err)
		g.Values[0] = 99
		assert.Equal(t, 0.0, data[0])
	})
}

func TestResolveCoordinates(t *testing.T) {
	t.Run("latitude/longitude 1-D", func(t *testing.T) {
		ds := &Dataset{Variables: []Variable{
			{Name: "latitude", Dims: []int{2}, Data: []float64{30, 31}},
			{Name: "longitude", Dims: []int{3}, Data: []float64{-100, -99, -98}},
		}}
		c, degraded, err := ds.ResolveCoordinates(2, 3)
		require.NoError(t, err)
		assert.False(t, degraded)
		assert.Equal(t, []float64{30, 31}, c.Lats)
	})

	t.Run("lat/lon 2-D", func(t *testing.T) {
		ds := &Dataset{Variables: []Variable{
			{Name: "lat", Dims: []int{1, 2}, Data: []float64{30, 30}},
			{Name: "lon", Dims: []int{1, 2}, Data: []float64{250, 251}},
		}}
		c, degraded, err := ds.ResolveCoordinates(1, 2)
		require.NoError(t, err)
		assert.False(t, degraded)
		assert.True(t, c.Is2D())
		assert.Equal(t, Lon360, c.Convention())
	})

	t.Run("shape mismatch", func(t *testing.T) {
		ds := &Dataset{Variables: []Variable{
			{Name: "latitude", Dims: []int{2}, Data: []float64{30, 31}},
			{Name: "longitude", Dims: []int{2}, Data: []float64{-100, -99}},
		}}
		_, _, err := ds.ResolveCoordinates(2, 3)
		assert.Error(t, err)
	})

	t.Run("placeholder", func(t *testing.T) {
		ds := &Dataset{Variables: []Variable{{Name: "unknown", Dims: []int{3, 5}}}}
		c, degraded, err := ds.ResolveCoordinates(3, 5)
		require.NoError(t, err)
		assert.True(t, degraded)
		want := Coordinates{
			Lats: []float64{20, 37.5, 55},
			Lons: []float64{-130, -112.5, -95, -77.5, -60},
		}
		if diff := cmp.Diff(want, c); diff != "" {
			t.Errorf("placeholder coordinates mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestCoordinates_Mesh(t *testing.T) {
	c := Coordinates{Lats: []float64{1, 2}, Lons: []float64{10, 20, 30}}.Mesh()
	require.True(t, c.Is2D())
	assert.Equal(t, []float64{1, 1, 1, 2, 2, 2}, c.LatGrid.Values)
	assert.Equal(t, []float64{10, 20, 30, 10, 20, 30}, c.LonGrid.Values)
	assert.Equal(t, []float64{1, 2}, c.RowLats())
	assert.Equal(t, []float64{10, 20, 30}, c.ColLons())
}
