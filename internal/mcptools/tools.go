package mcptools

import "github.com/dusk-indust/depsolve/internal/graph"

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.
//
// maxLevel is the user-facing level: 0 keeps nothing, 1 keeps the direct
// dependencies, each further level adds one hop. It is doubled into an edge
// bound here, before the request reaches the dispatcher.

// LoadGraphInput is the input for the load_graph MCP tool.
type LoadGraphInput struct {
	Path     string `json:"path,omitempty" jsonschema:"path to a graph document (YAML or JSON) readable by the server"`
	Document string `json:"document,omitempty" jsonschema:"inline graph document text (YAML or JSON); used when path is empty"`
	ID       string `json:"id,omitempty" jsonschema:"graph id; overrides the id in the document"`
}

// GraphSummary describes a stored graph.
type GraphSummary struct {
	ID        string           `json:"id"`
	Ecosystem string           `json:"ecosystem,omitempty"`
	Moment    string           `json:"moment"`
	Stats     graph.GraphStats `json:"stats"`
}

// LoadGraphOutput is the result of the load_graph MCP tool.
type LoadGraphOutput struct {
	Graph GraphSummary `json:"graph"`
}

// ListGraphsInput is the input for the list_graphs MCP tool.
type ListGraphsInput struct{}

// ListGraphsOutput is the result of the list_graphs MCP tool.
type ListGraphsOutput struct {
	Graphs []GraphSummary `json:"graphs"`
}

// GraphQueryInput is the input for valid_graph, count_configs and graph_info.
type GraphQueryInput struct {
	GraphID       string `json:"graphId" jsonschema:"id of a loaded graph"`
	MaxLevel      *int   `json:"maxLevel,omitempty" jsonschema:"dependency levels to include (>= 0); -1 or omitted for the whole graph"`
	Aggregator    string `json:"aggregator,omitempty" jsonschema:"mean (default) or weighted_mean"`
	MaxExpansions int64  `json:"maxExpansions,omitempty" jsonschema:"search budget in candidate assignments (0 = server default)"`
	TimeoutMs     int64  `json:"timeoutMs,omitempty" jsonschema:"search budget in milliseconds (0 = server default)"`
}

// ImpactQueryInput is the input for minimize_impact and maximize_impact.
type ImpactQueryInput struct {
	GraphID       string `json:"graphId" jsonschema:"id of a loaded graph"`
	MaxLevel      *int   `json:"maxLevel,omitempty" jsonschema:"dependency levels to include (>= 0); -1 or omitted for the whole graph"`
	Aggregator    string `json:"aggregator,omitempty" jsonschema:"mean (default) or weighted_mean"`
	Limit         int    `json:"limit,omitempty" jsonschema:"maximum number of configurations (default: 10)"`
	MaxExpansions int64  `json:"maxExpansions,omitempty" jsonschema:"search budget in candidate assignments (0 = server default)"`
	TimeoutMs     int64  `json:"timeoutMs,omitempty" jsonschema:"search budget in milliseconds (0 = server default)"`
}

// FilterConfigsInput is the input for the filter_configs MCP tool.
type FilterConfigsInput struct {
	GraphID       string  `json:"graphId" jsonschema:"id of a loaded graph"`
	MaxLevel      *int    `json:"maxLevel,omitempty" jsonschema:"dependency levels to include (>= 0); -1 or omitted for the whole graph"`
	Aggregator    string  `json:"aggregator,omitempty" jsonschema:"mean (default) or weighted_mean"`
	MinThreshold  float64 `json:"minThreshold" jsonschema:"lowest accepted aggregate impact (0-10)"`
	MaxThreshold  float64 `json:"maxThreshold" jsonschema:"highest accepted aggregate impact (0-10)"`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum number of configurations (default: 10)"`
	MaxExpansions int64   `json:"maxExpansions,omitempty" jsonschema:"search budget in candidate assignments (0 = server default)"`
	TimeoutMs     int64   `json:"timeoutMs,omitempty" jsonschema:"search budget in milliseconds (0 = server default)"`
}

// ConfigByImpactInput is the input for the config_by_impact MCP tool.
type ConfigByImpactInput struct {
	GraphID       string  `json:"graphId" jsonschema:"id of a loaded graph"`
	MaxLevel      *int    `json:"maxLevel,omitempty" jsonschema:"dependency levels to include (>= 0); -1 or omitted for the whole graph"`
	Aggregator    string  `json:"aggregator,omitempty" jsonschema:"mean (default) or weighted_mean"`
	Impact        float64 `json:"impact" jsonschema:"target aggregate impact (0-10)"`
	Limit         int     `json:"limit,omitempty" jsonschema:"maximum number of configurations (default: 10)"`
	MaxExpansions int64   `json:"maxExpansions,omitempty" jsonschema:"search budget in candidate assignments (0 = server default)"`
	TimeoutMs     int64   `json:"timeoutMs,omitempty" jsonschema:"search budget in milliseconds (0 = server default)"`
}

// ConfigInput is the input for valid_config and complete_config.
type ConfigInput struct {
	GraphID       string            `json:"graphId" jsonschema:"id of a loaded graph"`
	MaxLevel      *int              `json:"maxLevel,omitempty" jsonschema:"dependency levels to include (>= 0); -1 or omitted for the whole graph"`
	Aggregator    string            `json:"aggregator,omitempty" jsonschema:"mean (default) or weighted_mean"`
	Config        map[string]string `json:"config" jsonschema:"package name to version, full or partial"`
	MaxExpansions int64             `json:"maxExpansions,omitempty" jsonschema:"search budget in candidate assignments (0 = server default)"`
	TimeoutMs     int64             `json:"timeoutMs,omitempty" jsonschema:"search budget in milliseconds (0 = server default)"`
}
