package common

// Version is set at build time via -ldflags "-X ...common.Version=v0.3.0"
var Version = "dev"

// GetVersion returns the build version string
func GetVersion() string {
	return Version
}
