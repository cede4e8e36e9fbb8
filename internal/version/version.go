package version

// Version is the rfidisk release shown on the idle display ("RFIDisk v<Version>").
// Override at build time:
// go build -ldflags "-X github.com/ItsDanik/rfidisk/internal/version.Version=0.8".
var Version = "0.7"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Banner returns the idle display footer.
func Banner() string {
	return "RFIDisk v" + Version
}
