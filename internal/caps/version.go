package caps

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// DefaultMinVersion is the oldest embed script the service accepts
// when no minimum is configured.
const DefaultMinVersion = "2.0.0"

// EmbedVersionUnsupported is the error code for outdated or unparsable
// embed versions.
const EmbedVersionUnsupported = "embed_version_unsupported"

// VersionError is returned when the declared embed version cannot be
// served.
type VersionError struct {
	Code         string
	Message      string
	EmbedVersion string
	MinVersion   string
}

func (e *VersionError) Error() string {
	return e.Message
}

// ValidateVersion checks a declared embed version against the
// configured minimum. An empty declaration passes: versionless embeds
// run on defaults. A version that is not semver, or older than the
// minimum, is rejected with a VersionError.
func ValidateVersion(declared, minimum string) error {
	if declared == "" {
		return nil
	}
	if minimum == "" {
		minimum = DefaultMinVersion
	}

	dv := normalizeVersion(declared)
	if !semver.IsValid(dv) {
		return &VersionError{
			Code:         EmbedVersionUnsupported,
			Message:      fmt.Sprintf("embed version %q is not valid semver", declared),
			EmbedVersion: declared,
			MinVersion:   minimum,
		}
	}

	if semver.Compare(dv, normalizeVersion(minimum)) < 0 {
		return &VersionError{
			Code:         EmbedVersionUnsupported,
			Message:      fmt.Sprintf("embed version %s is older than the supported minimum %s", declared, minimum),
			EmbedVersion: declared,
			MinVersion:   minimum,
		}
	}

	return nil
}

// normalizeVersion adds the "v" prefix semver parsing wants.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
