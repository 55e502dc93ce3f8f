package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

func readTable(t *testing.T, name, data string) *table.Table {
	t.Helper()
	tbl, err := table.ReadCSV(strings.NewReader(data), name, table.ReadOptions{})
	require.NoError(t, err)
	return tbl
}

func records(tbl *table.Table) []string {
	out := make([]string, 0, tbl.Len())
	for _, rec := range tbl.Records() {
		out = append(out, strings.Join(rec, ","))
	}
	return out
}

func TestOuterJoin(t *testing.T) {
	left := readTable(t, "general", "provider_id,state,score\n10005,AL,2\n10001,AL,1\n")
	right := readTable(t, "spending", "provider_id,spend\n10001,0.98\n20002,1.1\n")

	out, err := OuterJoin(left, right, "provider_id")
	require.NoError(t, err)

	assert.Equal(t, []string{"provider_id", "state", "score", "spend"}, out.Columns)
	assert.Equal(t, []string{
		"10001,AL,1,0.98",
		"10005,AL,2,",
		"20002,,,1.1",
	}, records(out))
}

func TestOuterJoin_NumericKeysSortByValue(t *testing.T) {
	left := readTable(t, "a", "id,v\n100,a\n9,b\n")
	right := readTable(t, "b", "id,w\n010,c\n")

	out, err := OuterJoin(left, right, "id")
	require.NoError(t, err)

	assert.Equal(t, []string{"9,b,", "10,,c", "100,a,"}, records(out))
}

func TestOuterJoin_TextKeysSortLexically(t *testing.T) {
	left := readTable(t, "a", "id,v\nb,1\nA1,2\n")
	right := readTable(t, "b", "id,w\n9,3\n")

	out, err := OuterJoin(left, right, "id")
	require.NoError(t, err)

	assert.Equal(t, []string{"9,,3", "A1,2,", "b,1,"}, records(out))
}

func TestOuterJoin_DuplicateKeysCrossProduct(t *testing.T) {
	left := readTable(t, "a", "id,v\n1,a\n1,b\n")
	right := readTable(t, "b", "id,w\n1,x\n1,y\n")

	out, err := OuterJoin(left, right, "id")
	require.NoError(t, err)

	assert.Equal(t, []string{"1,a,x", "1,a,y", "1,b,x", "1,b,y"}, records(out))
}

func TestOuterJoin_CollidingColumns(t *testing.T) {
	left := readTable(t, "a", "id,state\n1,AL\n")
	right := readTable(t, "b", "id,state\n1,AK\n")

	out, err := OuterJoin(left, right, "id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "state_x", "state_y"}, out.Columns)
	assert.Equal(t, []string{"1,AL,AK"}, records(out))
}

func TestOuterJoin_MissingKeysSortLast(t *testing.T) {
	left := readTable(t, "a", "id,v\n,a\n2,b\n")
	right := readTable(t, "b", "id,w\n,c\n")

	out, err := OuterJoin(left, right, "id")
	require.NoError(t, err)

	assert.Equal(t, []string{"2,b,", ",a,c"}, records(out))
}

func TestOuterJoin_MissingKey(t *testing.T) {
	_, err := OuterJoin(table.New("a", "x"), table.New("b", "id"), "id")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestMergeTables(t *testing.T) {
	general := readTable(t, "general", "provider_id,state\n10001,AL\n10005,AL\n")
	spending := readTable(t, "spending", "provider_id,score\n10001,0.9\n")
	readmissions := readTable(t, "readmissions", "provider_number,hf\n10005,12\n30003,4\n")

	out, err := MergeTables([]*table.Table{general, spending, readmissions}, "provider_id")
	require.NoError(t, err)

	assert.Equal(t, "merged", out.Name)
	assert.Equal(t, []string{"provider_id", "state", "score", "hf"}, out.Columns)
	assert.Equal(t, []string{
		"10001,AL,0.9,",
		"10005,AL,,12",
		"30003,,,4",
	}, records(out))

	// inputs are untouched
	assert.Equal(t, "provider_number", readmissions.Columns[0])
}

func TestMergeTables_RenamesFirstTable(t *testing.T) {
	first := readTable(t, "readmissions", "provider_number,hf\n1,2\n")
	second := readTable(t, "general", "provider_id,state\n1,AL\n")

	out, err := MergeTables([]*table.Table{first, second}, "provider_id")
	require.NoError(t, err)
	assert.Equal(t, []string{"provider_id", "hf", "state"}, out.Columns)
}

func TestMergeTables_Empty(t *testing.T) {
	_, err := MergeTables(nil, "provider_id")
	assert.Error(t, err)
}

func TestBinStatesToRegion(t *testing.T) {
	tbl := readTable(t, "merged", "provider_id,state\n1,AK\n2,\n3,--\n4,ZZ\n5,PR\n")

	require.NoError(t, BinStatesToRegion(tbl, config.DefaultStateRegions()))

	regions, err := tbl.Column(RegionColumn)
	require.NoError(t, err)
	assert.Equal(t, table.String("US/Alaska"), regions[0])
	assert.Equal(t, table.String("US/Pacific"), regions[1])
	assert.Equal(t, table.String("US/Pacific"), regions[2])
	assert.True(t, regions[3].IsMissing())
	assert.Equal(t, table.String("America/Puerto_Rico"), regions[4])
}

func TestBinStatesToRegion_Errors(t *testing.T) {
	err := BinStatesToRegion(table.New("t", "provider_id"), config.DefaultStateRegions())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	err = BinStatesToRegion(table.New("t", "state", "region"), config.DefaultStateRegions())
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}
