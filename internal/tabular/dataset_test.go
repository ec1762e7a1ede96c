package tabular

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const patients = `id,age,sex,dx
1,34,F,healthy
2,51,M,diabetes
3,n/a,F,healthy
4,47,F,hypertension
5,62,M,healthy
6,29,M,
`

func TestReadClassifiesColumns(t *testing.T) {
	ds, err := Read(strings.NewReader(patients))
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "age", "sex", "dx"}, ds.Columns)
	assert.Equal(t, 6, ds.Len())

	ages, ok, err := ds.Numeric("age")
	require.NoError(t, err)
	// 5 of 6 parse: 0.83 > 0.8
	assert.True(t, ok)
	assert.True(t, math.IsNaN(ages[2]))
	assert.Equal(t, 62.0, ages[4])

	_, ok, err = ds.Numeric("sex")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNumericThresholdIsStrict(t *testing.T) {
	ds, err := Read(strings.NewReader("v\n1\n2\n3\n4\nx\n"))
	require.NoError(t, err)
	_, ok, err := ds.Numeric("v")
	require.NoError(t, err)
	assert.False(t, ok, "exactly 80 percent numeric is categorical")
}

func TestValueCountsOrder(t *testing.T) {
	ds, err := Read(strings.NewReader(patients))
	require.NoError(t, err)

	counts, err := ds.ValueCounts("dx")
	require.NoError(t, err)
	assert.Equal(t, []Count{
		{Value: "healthy", N: 3},
		{Value: "diabetes", N: 1},
		{Value: "hypertension", N: 1},
	}, counts)
}

func TestUnknownColumn(t *testing.T) {
	ds, err := Read(strings.NewReader(patients))
	require.NoError(t, err)
	_, err = ds.Column("weight")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestRaggedRowsAndDuplicateHeaders(t *testing.T) {
	ds, err := Read(strings.NewReader("a,a,\n1\n1,2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2"}, ds.Columns)
	assert.Equal(t, []string{"1", "", ""}, ds.Rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, ds.Rows[1])
}

func TestRenamedHeaderDoesNotCollide(t *testing.T) {
	ds, err := Read(strings.NewReader("a,a,a.1\nx,y,z\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a.1", "a.1.1"}, ds.Columns)

	for col, want := range map[string]string{"a": "x", "a.1": "y", "a.1.1": "z"} {
		cells, err := ds.Column(col)
		require.NoError(t, err)
		assert.Equal(t, []string{want}, cells, col)
	}
}

func TestEmptyAndPreview(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 150; i++ {
		b.WriteString("1\n")
	}
	path := filepath.Join(t.TempDir(), "big.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, ds.Preview(PreviewRows), PreviewRows)
	assert.Len(t, ds.Preview(1000), 150)
}
