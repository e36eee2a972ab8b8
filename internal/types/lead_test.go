//nolint:revive // types is a standard Go package name pattern
package types

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValid(t *testing.T) {
	assert.True(t, RegionUAE.Valid())
	assert.False(t, Region("Mars").Valid())
	assert.True(t, ServicePerformanceMarketing.Valid())
	assert.False(t, Service("Plumbing").Valid())
	assert.True(t, CompanySizeStartup.Valid())
	assert.False(t, CompanySize("").Valid())
	assert.True(t, LeadStatusWon.Valid())
	assert.False(t, LeadStatus("archived").Valid())
}

func TestCreateLeadRequest_Validation(t *testing.T) {
	validate := validator.New()

	valid := CreateLeadRequest{
		CompanyName: "TechCorp Solutions",
		Email:       "ahmed.rashid@techcorp.ae",
		Region:      RegionUAE,
		Service:     ServiceWebsiteDevelopment,
		CompanySize: CompanySizeEnterprise,
	}
	require.NoError(t, validate.Struct(valid))

	tests := []struct {
		name   string
		mutate func(r *CreateLeadRequest)
		errMsg string
	}{
		{"missing company", func(r *CreateLeadRequest) { r.CompanyName = "" }, "CompanyName"},
		{"bad email", func(r *CreateLeadRequest) { r.Email = "nope" }, "email"},
		{"unknown region", func(r *CreateLeadRequest) { r.Region = "Mars" }, "oneof"},
		{"unknown service", func(r *CreateLeadRequest) { r.Service = "Plumbing" }, "oneof"},
		{"short phone", func(r *CreateLeadRequest) { r.Phone = "123" }, "min"},
		{"bad status", func(r *CreateLeadRequest) { r.Status = "archived" }, "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := validate.Struct(req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestCreateLeadRequest_ToLead(t *testing.T) {
	req := CreateLeadRequest{CompanyName: "Acme", Email: "a@acme.com", Region: RegionUS}
	lead := req.ToLead()

	assert.Equal(t, LeadStatusNew, lead.Status)
	assert.NotNil(t, lead.Tags)
	assert.Empty(t, lead.ID)
}

func TestUpdateLeadRequest_Apply(t *testing.T) {
	lead := &Lead{CompanyName: "Acme", Email: "a@acme.com", Region: RegionUS, Status: LeadStatusNew}

	var empty UpdateLeadRequest
	assert.True(t, empty.Empty())

	status := LeadStatusQualified
	notes := "call back"
	req := UpdateLeadRequest{Status: &status, Notes: &notes, Tags: []string{"vip"}}
	assert.False(t, req.Empty())
	req.Apply(lead)

	assert.Equal(t, LeadStatusQualified, lead.Status)
	assert.Equal(t, "call back", lead.Notes)
	assert.Equal(t, []string{"vip"}, lead.Tags)
	assert.Equal(t, "Acme", lead.CompanyName)
}

func TestLead_CloneIsDeep(t *testing.T) {
	orig := &Lead{ID: "l1", Tags: []string{"a"}, CustomFields: map[string]any{"budget": "10k"}}
	c := orig.Clone()
	c.Tags[0] = "b"
	c.CustomFields["budget"] = "20k"

	assert.Equal(t, "a", orig.Tags[0])
	assert.Equal(t, "10k", orig.CustomFields["budget"])
	assert.True(t, c.HasTag("b"))
	assert.Nil(t, (*Lead)(nil).Clone())
}

func TestLeadFilter_Normalize(t *testing.T) {
	f := LeadFilter{Region: "all", Status: "new", Page: 0, Limit: -1}.Normalize()
	assert.Equal(t, "", f.Region)
	assert.Equal(t, "new", f.Status)
	assert.Equal(t, DefaultPage, f.Page)
	assert.Equal(t, DefaultLimit, f.Limit)

	f = LeadFilter{Page: 3, Limit: 20}.Normalize()
	assert.Equal(t, 40, f.Offset())
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, 3, NewPagination(1, 50, 101).Pages)
	assert.Equal(t, 0, NewPagination(1, 50, 0).Pages)
	assert.Equal(t, 1, NewPagination(1, 50, 50).Pages)
}
