package config

// Dataset kinds. The kind fixes the order of cleaning steps.
const (
	KindGeneralInfo  = "general_info"
	KindSpending     = "spending"
	KindReadmissions = "readmissions"
)

// DatasetSpec describes one input dataset and how to clean it
type DatasetSpec struct {
	Name           string   `yaml:"name" validate:"required"`
	Kind           string   `yaml:"kind" validate:"required,oneof=general_info spending readmissions"`
	File           string   `yaml:"file" validate:"required"`
	ExcludeColumns []string `yaml:"exclude_columns"`
	NAValues       []string `yaml:"na_values"`
	ConvertColumns []string `yaml:"convert_columns"`
}

// DefaultDatasets returns the three CMS datasets the pipeline was built for
func DefaultDatasets() []DatasetSpec {
	return []DatasetSpec{
		{
			Name: "general_info",
			Kind: KindGeneralInfo,
			File: "Hospital_General_Information.csv",
			ExcludeColumns: []string{
				"footnote", "measure_id", "start_date", "end_date",
				"hospital_name", "zip_code", "location", "address",
				"phone_number", "city", "county_name",
			},
			NAValues:       []string{"Not Available"},
			ConvertColumns: []string{"meets_criteria_for_meaningful_use_of_ehrs"},
		},
		{
			Name: "spending",
			Kind: KindSpending,
			File: "Medicare_hospital_spending_per_patient__Medicare_Spending_per_Beneficiary____Additional_Decimal_Places.csv",
			// General info is the only source of state
			ExcludeColumns: []string{
				"footnote", "location", "measure_id", "start_date", "end_date", "state",
			},
			NAValues: []string{"Not Available"},
		},
		{
			Name: "readmissions",
			Kind: KindReadmissions,
			File: "Hospital_Readmissions_Reduction_Program.csv",
			ExcludeColumns: []string{
				"footnote", "start_date", "end_date", "hospital_name", "state", "region",
			},
			NAValues: []string{"Not Available", "Too Few to Report"},
		},
	}
}

// DefaultStateRegions maps state and territory codes to timezone regions.
// Blank and "--" states fall back to US/Pacific.
func DefaultStateRegions() map[string]string {
	return map[string]string{
		"AK": "US/Alaska", "AL": "US/Central", "AR": "US/Central", "AS": "US/Samoa",
		"AZ": "US/Mountain", "CA": "US/Pacific", "CO": "US/Mountain", "CT": "US/Eastern",
		"DC": "US/Eastern", "DE": "US/Eastern", "FL": "US/Eastern", "GA": "US/Eastern",
		"GU": "Pacific/Guam", "HI": "US/Hawaii", "IA": "US/Central", "ID": "US/Mountain",
		"IL": "US/Central", "IN": "US/Eastern", "KS": "US/Central", "KY": "US/Eastern",
		"LA": "US/Central", "MA": "US/Eastern", "MD": "US/Eastern", "ME": "US/Eastern",
		"MI": "US/Eastern", "MN": "US/Central", "MO": "US/Central", "MP": "Pacific/Guam",
		"MS": "US/Central", "MT": "US/Mountain", "NC": "US/Eastern", "ND": "US/Central",
		"NE": "US/Central", "NH": "US/Eastern", "NJ": "US/Eastern", "NM": "US/Mountain",
		"NV": "US/Pacific", "NY": "US/Eastern", "OH": "US/Eastern", "OK": "US/Central",
		"OR": "US/Pacific", "PA": "US/Eastern", "PR": "America/Puerto_Rico", "RI": "US/Eastern",
		"SC": "US/Eastern", "SD": "US/Central", "TN": "US/Central", "TX": "US/Central",
		"UT": "US/Mountain", "VA": "US/Eastern", "VI": "America/Virgin", "VT": "US/Eastern",
		"WA": "US/Pacific", "WI": "US/Central", "WV": "US/Eastern", "WY": "US/Mountain",
		"": "US/Pacific", "--": "US/Pacific",
	}
}
