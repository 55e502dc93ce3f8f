package readmission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/patrickmlong/Data-Intensive-PML/internal/errors"
	"github.com/patrickmlong/Data-Intensive-PML/internal/table"
)

const header = "provider_number,state_code,measure_name," +
	"number_of_readmissions,number_of_discharges,excess_readmission_ratio," +
	"predicted_readmission_rate,expected_readmission_rate"

func readRows(t *testing.T, rows ...string) *table.Table {
	t.Helper()
	data := header + "\n" + strings.Join(rows, "\n") + "\n"
	tbl, err := table.ReadCSV(strings.NewReader(data), "readmissions", table.ReadOptions{})
	require.NoError(t, err)
	return tbl
}

func cell(t *testing.T, tbl *table.Table, row int, col string) table.Cell {
	t.Helper()
	idx := tbl.ColumnIndex(col)
	require.GreaterOrEqual(t, idx, 0, "column %s", col)
	return tbl.Rows[row][idx]
}

func TestPivot(t *testing.T) {
	tbl := readRows(t,
		"10001,AL,READM-30-HF-HRRP,50,300,1.02,20.1,19.7",
		"10001,AL,READM-30-AMI-HRRP,Too Few to Report,40,0.98,15.0,15.3",
		"10005,AL,READM-30-HF-HRRP,12,Not Available,Not Available,18.0,18.2",
	)
	opts := DefaultPivotOptions()
	opts.SkipTokens = []string{"Not Available", "Too Few to Report"}

	out, err := Pivot(tbl, opts)
	require.NoError(t, err)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, []string{
		"provider_number", "state_code",
		"readm_30_ami_hrrp_number_of_readmissions", "readm_30_hf_hrrp_number_of_readmissions",
		"readm_30_ami_hrrp_number_of_discharges", "readm_30_hf_hrrp_number_of_discharges",
		"readm_30_ami_hrrp_excess_readmission_ratio", "readm_30_hf_hrrp_excess_readmission_ratio",
		"readm_30_ami_hrrp_predicted_readmission_rate", "readm_30_hf_hrrp_predicted_readmission_rate",
		"readm_30_ami_hrrp_expected_readmission_rate", "readm_30_hf_hrrp_expected_readmission_rate",
	}, out.Columns)

	assert.Equal(t, table.String("10001"), cell(t, out, 0, "provider_number"))
	assert.Equal(t, table.String("0"), cell(t, out, 0, "readm_30_ami_hrrp_number_of_readmissions"))
	assert.Equal(t, table.String("50"), cell(t, out, 0, "readm_30_hf_hrrp_number_of_readmissions"))
	assert.Equal(t, table.String("1.02"), cell(t, out, 0, "readm_30_hf_hrrp_excess_readmission_ratio"))

	assert.Equal(t, table.String("10005"), cell(t, out, 1, "provider_number"))
	assert.True(t, cell(t, out, 1, "readm_30_ami_hrrp_number_of_readmissions").IsMissing())
	assert.True(t, cell(t, out, 1, "readm_30_hf_hrrp_number_of_discharges").IsMissing())
	assert.Equal(t, table.String("12"), cell(t, out, 1, "readm_30_hf_hrrp_number_of_readmissions"))
}

func TestPivot_SumsDuplicateMeasures(t *testing.T) {
	tbl := readRows(t,
		"10001,AL,READM-30-HF-HRRP,5,100,1,1,1",
		"10001,AL,READM-30-HF-HRRP,7,50,1,1,1",
	)

	out, err := Pivot(tbl, DefaultPivotOptions())
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.Equal(t, table.String("12"), cell(t, out, 0, "readm_30_hf_hrrp_number_of_readmissions"))
	assert.Equal(t, table.String("150"), cell(t, out, 0, "readm_30_hf_hrrp_number_of_discharges"))
}

func TestPivot_KeepsProvidersWithoutValues(t *testing.T) {
	tbl := readRows(t, "10009,AK,READM-30-HF-HRRP,,,,,")

	out, err := Pivot(tbl, DefaultPivotOptions())
	require.NoError(t, err)

	require.Equal(t, 1, out.Len())
	assert.True(t, cell(t, out, 0, "readm_30_hf_hrrp_number_of_readmissions").IsMissing())
}

func TestPivot_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		opts := DefaultPivotOptions()
		opts.Key = "provider_id"
		_, err := Pivot(readRows(t), opts)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("missing aggregate column", func(t *testing.T) {
		tbl := table.New("r", "provider_number", "measure_name")
		_, err := Pivot(tbl, DefaultPivotOptions())
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	})

	t.Run("non numeric value", func(t *testing.T) {
		tbl := readRows(t, "10001,AL,READM-30-HF-HRRP,lots,1,1,1,1")
		_, err := Pivot(tbl, DefaultPivotOptions())
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
	})
}

func TestPivotColumnName(t *testing.T) {
	assert.Equal(t, "readm_30_copd_hrrp_number_of_discharges",
		PivotColumnName("READM-30-COPD-HRRP", "number_of_discharges"))
}
