package ingestion

// Strategy selects how a normalized file is loaded.
type Strategy int

const (
	// StrategyWholeFile parses and upserts the file in one pass.
	StrategyWholeFile Strategy = iota
	// StrategyChunked streams the file in bounded row windows.
	StrategyChunked
)

func (s Strategy) String() string {
	if s == StrategyChunked {
		return "chunked"
	}
	return "whole-file"
}

// ChooseStrategy picks the execution path for a normalized file.
// Deterministic: the same size against the same threshold always yields the
// same choice. Files at or under the threshold fit comfortably in memory;
// anything larger degrades to bounded streaming.
func ChooseStrategy(sizeBytes, maxInMemoryBytes int64) Strategy {
	if sizeBytes > maxInMemoryBytes {
		return StrategyChunked
	}
	return StrategyWholeFile
}
