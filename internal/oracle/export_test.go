package oracle

// Test-only exports. Keeps white-box access explicit while tests stay in
// the oracle_test package.

var (
	ParseBatchResponse = parseBatchResponse
	CleanFragment      = cleanFragment
	BuildSystemPrompt  = buildSystemPrompt
	BuildBatchPrompt   = buildBatchPrompt
	BuildStrictPrompt  = buildStrictPrompt
)
