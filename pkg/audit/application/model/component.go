package model

type ComponentName = string

// ComponentSpec is one entry of the component registry: a deployable unit
// tracked by the deployment tool under a name and a version.
type ComponentSpec struct {
	Component ComponentName
	Version   string
}

func (s ComponentSpec) String() string {
	return s.Component + "@" + s.Version
}
