package main

// Input types for MCP tools. The SDK infers JSON Schema from these structs.
// Pointer types are optional; value types are required.

type searchInput struct {
	Query         *string  `json:"query,omitempty"          jsonschema:"Free-text search over name, crop, pathogen, symptoms and pesticides"`
	Severity      *string  `json:"severity,omitempty"       jsonschema:"Severity filter: low, medium or high"`
	Crops         []string `json:"crops,omitempty"          jsonschema:"Only diseases of these crops (e.g. 番茄)"`
	PathogenTypes []string `json:"pathogen_types,omitempty" jsonschema:"Only diseases caused by these pathogen types (e.g. 真菌)"`
	Conditions    []string `json:"conditions,omitempty"     jsonschema:"Only diseases favored by these conditions"`
	User          *string  `json:"user,omitempty"           jsonschema:"User name whose search history is updated. If omitted uses the default user."`
}

type diseaseIDInput struct {
	DiseaseID int     `json:"disease_id"      jsonschema:"The disease ID"`
	User      *string `json:"user,omitempty"  jsonschema:"User name for favorites and compare state. If omitted uses the default user."`
}

type suggestInput struct {
	Term string `json:"term" jsonschema:"Partial search term to complete"`
}

type compareInput struct {
	DiseaseIDs []int `json:"disease_ids" jsonschema:"Two to four disease IDs to compare side by side"`
}

type userOnlyInput struct {
	User *string `json:"user,omitempty" jsonschema:"User name. If omitted uses the default user."`
}

type galleryInput struct {
	Crop    *string `json:"crop,omitempty"    jsonschema:"Crop filter"`
	Disease *string `json:"disease,omitempty" jsonschema:"Disease name filter (健康 for healthy images)"`
	Type    *string `json:"type,omitempty"    jsonschema:"Image type filter"`
	Search  *string `json:"search,omitempty"  jsonschema:"Free-text filter over crop, disease and type"`
	Page    *int    `json:"page,omitempty"    jsonschema:"Page number (default 1)"`
}

type alertsInput struct {
	Limit *int    `json:"limit,omitempty" jsonschema:"Maximum number of alerts to return (default 20)"`
	Mine  *bool   `json:"mine,omitempty"  jsonschema:"Only alerts that mention one of the user's favorite diseases"`
	User  *string `json:"user,omitempty"  jsonschema:"User name for multi-user resolution. If omitted uses the default user."`
}

type askInput struct {
	DiseaseID int     `json:"disease_id"     jsonschema:"The disease the question is about"`
	Question  string  `json:"question"       jsonschema:"The question for the plant-protection advisor"`
	User      *string `json:"user,omitempty" jsonschema:"User name whose prompt overrides apply. If omitted uses the default user."`
}

type emptyInput struct{}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
