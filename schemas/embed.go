// Package schemas holds the JSON Schema documents shipped with the binary.
package schemas

import "embed"

// Schema file names
const (
	CampaignSettings = "campaign_settings.schema.json"
	LeadList         = "lead_list.schema.json"
)

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS
