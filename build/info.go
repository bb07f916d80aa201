// Package build carries version information stamped in with -ldflags.
package build

import "fmt"

type BuildMode string

const (
	ModeDevelopment BuildMode = "development"
	ModeProduction  BuildMode = "production"
)

func IsDevelopment() bool { return Mode == ModeDevelopment }
func IsProduction() bool  { return Mode == ModeProduction }

type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Mode      string `json:"mode"`
}

func Current() Info {
	return Info{
		Name:      Name,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Mode:      string(Mode),
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", i.Name, i.Version, i.Commit, i.BuildDate, i.Mode)
}
