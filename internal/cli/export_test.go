package cli

// Export internal functions for testing.

// ClampParallel exports clampParallel for testing.
var ClampParallel = clampParallel

// DeriveOutputPath exports deriveOutputPath for testing.
var DeriveOutputPath = deriveOutputPath

// WriteFileAtomic exports writeFileAtomic for testing.
var WriteFileAtomic = writeFileAtomic

// ResultsCSV exports resultsCSV for testing.
var ResultsCSV = resultsCSV

// LogCSV exports logCSV for testing.
var LogCSV = logCSV

// SimplifiedText exports simplifiedText for testing.
var SimplifiedText = simplifiedText

// RunEstimate exports runEstimate for testing.
var RunEstimate = runEstimate

// RunConfigSet exports runConfigSet for testing.
var RunConfigSet = runConfigSet

// RunConfigGet exports runConfigGet for testing.
var RunConfigGet = runConfigGet

// RunConfigList exports runConfigList for testing.
var RunConfigList = runConfigList

// IsValidConfigKey exports isValidConfigKey for testing.
var IsValidConfigKey = isValidConfigKey

// ValidConfigKeys exports validConfigKeys for testing.
var ValidConfigKeys = validConfigKeys

// EnvVarFor exports envVarFor for testing.
var EnvVarFor = envVarFor

// ReadSentences exports readSentences for testing.
var ReadSentences = readSentences
