package model

// ErrorKind classifies terminal per-component failures. A component with a
// non-empty kind skips evaluation and is rendered as an error row.
type ErrorKind string

const (
	ErrorNone      ErrorKind = ""
	DownloadFailed ErrorKind = "DownloadFailed"
	UnpackFailed   ErrorKind = "UnpackFailed"
)

// ManifestFileCheck records per manifest file whether it exists in the
// unpacked bundle.
type ManifestFileCheck = map[string]bool

// VersionProperties holds the deployment tool's recorded metadata for a
// component version.
type VersionProperties = map[string]string

// MappingValidation holds the per-property verdict of BuildMapping.
type MappingValidation = map[string]bool

// FetchResult is the outcome of downloading and unpacking one component
// bundle. LocalPath is the directory holding the unpacked contents; a failed
// fetch carries the error kind instead. Terminal once produced.
type FetchResult struct {
	Spec      ComponentSpec
	LocalPath string
	Err       ErrorKind
	ErrDetail string
}

// ValidationRecord is the unit of report output, one per registry entry,
// immutable once evaluated.
type ValidationRecord struct {
	Component ComponentName
	Version   string
	Files     ManifestFileCheck
	Props     VersionProperties
	Mapping   MappingValidation
	Err       ErrorKind
	ErrDetail string
	// PropsNote carries a non-fatal property retrieval or parse failure.
	// The record keeps its file checks; all properties read as unset.
	PropsNote string
}

// OverallPass reports the record verdict: no terminal error and every checked
// property mapping valid.
func (r ValidationRecord) OverallPass() bool {
	if r.Err != ErrorNone {
		return false
	}
	for _, property := range PropertyNames() {
		if !r.Mapping[property] {
			return false
		}
	}
	return true
}
