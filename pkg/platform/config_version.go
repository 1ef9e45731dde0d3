package platform

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the current tools file API version.
const CurrentConfigVersion = "v1"

// VersionStatus represents the lifecycle state of a tools file version.
type VersionStatus int

const (
	// VersionCurrent is an actively supported version.
	VersionCurrent VersionStatus = iota
	// VersionDeprecated still loads but logs a warning.
	VersionDeprecated
	// VersionRemoved no longer loads.
	VersionRemoved
)

// String returns a human-readable representation of the version status.
func (s VersionStatus) String() string {
	switch s {
	case VersionCurrent:
		return "current"
	case VersionDeprecated:
		return "deprecated"
	case VersionRemoved:
		return "removed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// VersionInfo describes a tools file API version.
type VersionInfo struct {
	Version string
	Status  VersionStatus

	// Message is logged for deprecated versions and returned for removed ones.
	Message string
}

// knownVersions lists every apiVersion the loader has ever accepted.
var knownVersions = map[string]VersionInfo{
	"v1": {Version: "v1", Status: VersionCurrent},
}

// SupportedVersions returns the versions that still load, sorted.
func SupportedVersions() []string {
	var supported []string
	for v, info := range knownVersions {
		if info.Status != VersionRemoved {
			supported = append(supported, v)
		}
	}
	sort.Strings(supported)
	return supported
}

type versionEnvelope struct {
	APIVersion string `yaml:"apiVersion" toml:"apiVersion"`
}

// peekVersion extracts apiVersion without decoding the rest of the file.
// A missing or unreadable field yields the current version; the full decode
// reports syntax errors.
func peekVersion(data []byte, format Format) string {
	var env versionEnvelope
	var err error
	if format == FormatTOML {
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(&env)
	} else {
		err = yaml.Unmarshal(data, &env)
	}
	if err != nil || env.APIVersion == "" {
		return CurrentConfigVersion
	}
	return env.APIVersion
}

// resolveVersion rejects unknown and removed versions and warns on
// deprecated ones.
func resolveVersion(version string) (VersionInfo, error) {
	info, ok := knownVersions[version]
	if !ok {
		return info, fmt.Errorf("unsupported apiVersion %q; supported versions: %s",
			version, strings.Join(SupportedVersions(), ", "))
	}
	switch info.Status {
	case VersionRemoved:
		return info, fmt.Errorf("apiVersion %q has been removed: %s", version, info.Message)
	case VersionDeprecated:
		slog.Warn("tools file apiVersion is deprecated", "version", version, "message", info.Message)
	}
	return info, nil
}
