// Package node declares the input and output schema of each component so a
// host graph runtime can render and schedule it.
package node

import (
	"fill-nodes-go/internal/artifact"
	"fill-nodes-go/pkg/validation"
)

// ValueType names the kind of value an input or output carries.
type ValueType string

const (
	TypeImage  ValueType = "IMAGE"
	TypeString ValueType = "STRING"
	TypeInt    ValueType = "INT"
)

// CachePolicy tells the host when a node's previous result may be reused.
type CachePolicy string

const (
	// ByInputs reuses the result while inputs are unchanged.
	ByInputs CachePolicy = "by_inputs"
	// AlwaysStale forces re-execution on every graph run.
	AlwaysStale CachePolicy = "always_stale"
)

// InputSpec describes one node input.
type InputSpec struct {
	Name    string      `json:"name"`
	Type    ValueType   `json:"type"`
	Default interface{} `json:"default,omitempty"`
	Choices []string    `json:"choices,omitempty"`
	Min     *int        `json:"min,omitempty"`
	Max     *int        `json:"max,omitempty"`
	Step    *int        `json:"step,omitempty"`
}

// OutputSpec describes one node output.
type OutputSpec struct {
	Name string    `json:"name"`
	Type ValueType `json:"type"`
}

// Descriptor is the full declaration of a node.
type Descriptor struct {
	Name        string       `json:"name"`
	Category    string       `json:"category"`
	Function    string       `json:"function"`
	Inputs      []InputSpec  `json:"inputs"`
	Outputs     []OutputSpec `json:"outputs"`
	OutputNode  bool         `json:"output_node"`
	CachePolicy CachePolicy  `json:"cache_policy"`
}

// Input returns the named input and whether it exists.
func (d Descriptor) Input(name string) (InputSpec, bool) {
	for _, in := range d.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return InputSpec{}, false
}

const (
	ImageSaverName  = "FL_API_ImageSaver"
	SystemCheckName = "FL_SystemCheck"

	categoryAPITools = "🏵️Fill Nodes/API Tools"
	categoryUtility  = "🏵️Fill Nodes/utility"

	defaultBaseOutputDir = "/absolute/path/to/output"
)

func intPtr(v int) *int { return &v }

// ImageSaverDescriptor declares the artifact writer. Its cache policy
// follows the writer's own staleness capability.
func ImageSaverDescriptor(w *artifact.Writer) Descriptor {
	choices := make([]string, len(artifact.Formats))
	for i, f := range artifact.Formats {
		choices[i] = string(f)
	}

	policy := ByInputs
	if w == nil || w.AlwaysStale() {
		policy = AlwaysStale
	}

	return Descriptor{
		Name:     ImageSaverName,
		Category: categoryAPITools,
		Function: "save_categorized_image",
		Inputs: []InputSpec{
			{Name: "image", Type: TypeImage},
			{Name: "job_id", Type: TypeString},
			{Name: "category", Type: TypeString},
			{Name: "base_output_dir", Type: TypeString, Default: defaultBaseOutputDir},
			{Name: "image_format", Type: TypeString, Default: string(artifact.FormatPNG), Choices: choices},
			{
				Name:    "image_quality",
				Type:    TypeInt,
				Default: artifact.DefaultQuality,
				Min:     intPtr(validation.MinQuality),
				Max:     intPtr(validation.MaxQuality),
				Step:    intPtr(1),
			},
		},
		Outputs: []OutputSpec{
			{Name: "saved_path", Type: TypeString},
			{Name: "job_id", Type: TypeString},
			{Name: "category", Type: TypeString},
		},
		OutputNode:  true,
		CachePolicy: policy,
	}
}

// SystemCheckDescriptor declares the diagnostics reporter. It takes no
// inputs and produces no graph outputs; its report is served over HTTP.
func SystemCheckDescriptor() Descriptor {
	return Descriptor{
		Name:        SystemCheckName,
		Category:    categoryUtility,
		Function:    "run_check",
		Inputs:      []InputSpec{},
		Outputs:     []OutputSpec{},
		OutputNode:  true,
		CachePolicy: ByInputs,
	}
}

// Registry returns every descriptor in registration order.
func Registry(w *artifact.Writer) []Descriptor {
	return []Descriptor{ImageSaverDescriptor(w), SystemCheckDescriptor()}
}
