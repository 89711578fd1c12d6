package ir

// Version constants for the IR encoding and the toolchain.
const (
	// IRVersion is the canonical node encoding version.
	IRVersion = "1"

	// EngineVersion is the querypipe version reported by the CLI.
	EngineVersion = "0.1.0"
)
