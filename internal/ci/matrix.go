package ci

import (
	"fmt"
	"sort"
	"strings"
)

// Leg is one expanded build leg: a platform paired with a resolved
// environment variable set.
type Leg struct {
	Index    int
	Platform string
	Env      map[string]string
}

// Name renders a stable human-readable leg identifier.
func (l Leg) Name() string {
	keys := make([]string, 0, len(l.Env))
	for k := range l.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, l.Env[k]))
	}
	if l.Platform != "" {
		parts = append(parts, l.Platform)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("leg-%d", l.Index)
	}
	return strings.Join(parts, " ")
}

// ExpandMatrix builds the leg list: the environment matrix crossed with
// the platform list. With no matrix rows there is one implicit empty row;
// with no platforms there is one implicit empty platform. Global
// environment variables apply to every leg, matrix rows override them.
func ExpandMatrix(cfg *Config) []Leg {
	rows := cfg.Environment.Matrix
	if len(rows) == 0 {
		rows = []map[string]string{{}}
	}
	platforms := cfg.Platforms
	if len(platforms) == 0 {
		platforms = []string{""}
	}

	legs := make([]Leg, 0, len(rows)*len(platforms))
	for _, row := range rows {
		for _, platform := range platforms {
			env := make(map[string]string, len(cfg.Environment.Global)+len(row)+1)
			for k, v := range cfg.Environment.Global {
				env[k] = v
			}
			for k, v := range row {
				env[k] = v
			}
			if platform != "" {
				env["PLATFORM"] = platform
			}
			legs = append(legs, Leg{
				Index:    len(legs),
				Platform: platform,
				Env:      env,
			})
		}
	}
	return legs
}
