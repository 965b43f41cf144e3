// Package asset holds the domain model for assets managed by the remote
// service: identities, datasets, and the status workflow.
package asset

// Identity is the service-assigned identity of one asset version. Both
// fields are opaque strings and immutable once returned by the service.
type Identity struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// Dataset is a sub-grouping of files within an asset, such as "Source"
// or "Preview".
type Dataset struct {
	ID          string `json:"datasetId"`
	Name        string `json:"name"`
	PrimaryType string `json:"primaryType,omitempty"`
}

// Asset is the full asset record as reported by the service.
type Asset struct {
	Identity        Identity          `json:"identity"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	SystemTags      []string          `json:"systemTags,omitempty"`
	Labels          []string          `json:"labels,omitempty"`
	PrimaryType     string            `json:"primaryType"`
	Status          Status            `json:"status"`
	Frozen          bool              `json:"frozen"`
	SourceProjectID string            `json:"sourceProjectId"`
	ProjectIDs      []string          `json:"projectIds"`
	Datasets        []Dataset         `json:"datasets,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// SourceDataset returns the asset's "Source" dataset, which holds the
// uploaded content files. The first file uploaded establishes this
// dataset as the primary attachment context for the rest.
func (a *Asset) SourceDataset() (Dataset, bool) {
	return FindDataset(a.Datasets, SourceDatasetName)
}

// SourceDatasetName is the service's well-known name for the dataset
// holding uploaded source files.
const SourceDatasetName = "Source"

// FindDataset returns the first dataset with the given name.
func FindDataset(datasets []Dataset, name string) (Dataset, bool) {
	for _, d := range datasets {
		if d.Name == name {
			return d, true
		}
	}
	return Dataset{}, false
}
