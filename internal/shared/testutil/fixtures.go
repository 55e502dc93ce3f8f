package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/patrickmlong/Data-Intensive-PML/internal/config"
)

// RawFixtures holds one small raw export per dataset kind. Two hospitals in
// different states appear in general info; only the first has spending and
// readmission rows.
var RawFixtures = map[string]string{
	config.KindGeneralInfo: "Provider ID,Hospital Name,State,Emergency Services,Meets criteria for meaningful use of EHRs,Mortality national comparison\n" +
		"010001,SOUTHEAST ALABAMA MEDICAL CENTER,AL,True,Y,Same as the National average\n" +
		"020001,PROVIDENCE ALASKA MEDICAL CENTER,AK,True,,Above the National average\n",
	config.KindSpending: "Hospital Name,Provider ID,State,Measure Name,Measure ID,Score,Footnote,Start Date,End Date,Location\n" +
		"SOUTHEAST ALABAMA MEDICAL CENTER,010001,AL,Medicare hospital spending per patient,MSPB_1,0.987,,01/01/2015,12/31/2015,\n",
	config.KindReadmissions: "Hospital Name,Provider Number,State,Measure Name,Number of Discharges,Excess Readmission Ratio,Predicted Readmission Rate,Expected Readmission Rate,Number of Readmissions\n" +
		"SOUTHEAST ALABAMA MEDICAL CENTER,010001,AL,READM-30-HF-HRRP,651,1.0107,21.2,21.0,139\n",
}

// WriteRawFixtures writes the fixture for each dataset's kind to its raw path
func WriteRawFixtures(t testing.TB, paths *config.Paths, specs []config.DatasetSpec) {
	t.Helper()
	require.NoError(t, paths.EnsureDirectories())
	for _, ds := range specs {
		content, ok := RawFixtures[ds.Kind]
		require.True(t, ok, "no fixture for kind %s", ds.Kind)
		require.NoError(t, os.WriteFile(paths.GetRawPath(ds.File), []byte(content), 0644))
	}
}
