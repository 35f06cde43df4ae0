package floppydump

// ProgramName and Version identify the tool in IMD headers and comments.
const ProgramName = "floppydump"
const Version = "1.1.0"
