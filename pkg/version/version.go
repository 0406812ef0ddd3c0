package version

import (
	"runtime/debug"
)

// Version and CommitSHA can be set via:
// -ldflags="-X 'github.com/defenseunicorns/uds-cxone-report/pkg/version.Version=$TAG' -X 'github.com/defenseunicorns/uds-cxone-report/pkg/version.CommitSHA=$SHA'"
var (
	Version   string
	CommitSHA string
)

func init() {
	i, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if Version == "" {
		Version = i.Main.Version
	}
	if CommitSHA == "" {
		for _, s := range i.Settings {
			if s.Key == "vcs.revision" {
				CommitSHA = s.Value
			}
		}
	}
}
