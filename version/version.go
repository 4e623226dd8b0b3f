package version

// Version is the semver of the safecall binary, set at release time.
var Version = "0.1.0"
