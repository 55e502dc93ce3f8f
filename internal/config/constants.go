package config

// Application constants
const (
	AppName    = "medclean"
	AppVersion = "1.0.0"

	// ComparisonMissing replaces missing values in coerced integer columns
	ComparisonMissing = 3

	// SuppressedCount is how CMS marks counts too small to publish
	SuppressedCount = "Too Few to Report"
)
