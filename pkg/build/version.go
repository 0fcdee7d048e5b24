package build

// Version is the release version, overridden at link time with
// -ldflags "-X github.com/storacha/uploadurl/pkg/build.Version=...".
var Version = "v0.1.0"
