package model

// Manifest files expected inside every component bundle, one per production
// environment.
const (
	ManifestEs1 = "manifest-es1.yml"
	ManifestEs2 = "manifest-es2.yml"
	ManifestWs2 = "manifest-ws2.yml"
)

// Version property names recorded by the deployment tool. The lower-case
// prefix on the Ws2 property matches what the tool actually stores; it is not
// a typo on our side.
const (
	PropManifestEs1 = "ManifestPROD_Es1"
	PropManifestEs2 = "ManifestPROD_Es2"
	PropManifestWs2 = "mManifestPROD_Ws2"
)

// ManifestForProperty maps each version property to the manifest file its
// value must reference.
var ManifestForProperty = map[string]string{
	PropManifestEs1: ManifestEs1,
	PropManifestEs2: ManifestEs2,
	PropManifestWs2: ManifestWs2,
}

// PropertyNames returns the checked property names in presentation order.
func PropertyNames() []string {
	return []string{PropManifestEs1, PropManifestEs2, PropManifestWs2}
}

// ManifestNames returns the checked manifest files in presentation order.
func ManifestNames() []string {
	return []string{ManifestEs1, ManifestEs2, ManifestWs2}
}

// BuildMapping computes the per-property validation verdict: a property is
// valid only when its manifest file exists in the bundle and the recorded
// value names exactly that file.
func BuildMapping(files ManifestFileCheck, props VersionProperties) MappingValidation {
	mapping := make(MappingValidation, len(ManifestForProperty))
	for property, manifest := range ManifestForProperty {
		mapping[property] = files[manifest] && props[property] == manifest
	}
	return mapping
}
