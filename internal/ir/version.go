package ir

// RuntimeVersion is the duet runtime version, reported by `duet --version`.
const RuntimeVersion = "0.1.0"
