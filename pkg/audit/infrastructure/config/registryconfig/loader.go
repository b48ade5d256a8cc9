package registryconfig

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/deployaudit/tools/pkg/audit/application/model"
)

// Entry is one element of the component registry document.
type Entry struct {
	ComponentName  string `json:"ComponentName"`
	UDeployVersion string `json:"uDeployVersion"`
}

// Load reads the registry document: a JSON array of component/version pairs.
// Any defect in the document is fatal, the batch must not start on a partial
// registry.
func Load(filePath string) ([]model.ComponentSpec, error) {
	registryBody, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read registry file: %v", filePath)
	}

	var entries []Entry
	err = json.Unmarshal(registryBody, &entries)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal registry")
	}
	err = assertEntries(entries)
	if err != nil {
		return nil, err
	}

	return mapToComponentSpecs(entries), nil
}

func mapToComponentSpecs(entries []Entry) []model.ComponentSpec {
	specs := make([]model.ComponentSpec, 0, len(entries))
	for _, entry := range entries {
		specs = append(specs, model.ComponentSpec{
			Component: entry.ComponentName,
			Version:   entry.UDeployVersion,
		})
	}
	return specs
}

func assertEntries(entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("registry contains no components")
	}
	for i, entry := range entries {
		if entry.ComponentName == "" {
			return fmt.Errorf("registry entry %v has no ComponentName", i)
		}
		if entry.UDeployVersion == "" {
			return fmt.Errorf("registry entry %v (%v) has no uDeployVersion", i, entry.ComponentName)
		}
	}
	return nil
}
