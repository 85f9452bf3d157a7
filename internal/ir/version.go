package ir

// ProgramVersion is the cavityproof release version.
const ProgramVersion = "0.3.0"
