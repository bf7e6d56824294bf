package version

// Current is the filemod release version, without a "v" prefix.
const Current = "0.1.0"
