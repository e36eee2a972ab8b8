package dedupe

import (
	"testing"

	"github.com/jonathan/marketing-hub/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestScorePair_IdenticalEmail(t *testing.T) {
	a := &types.Lead{ID: "1", Email: "j@x.com", CompanyName: "Acme"}
	b := &types.Lead{ID: "2", Email: "J@X.COM", CompanyName: "Acme Inc"}

	m := ScorePair(a, b)
	assert.Equal(t, MatchEmail, m.MatchType)
	assert.Equal(t, []string{ReasonIdenticalEmail}, m.Reasons)
	assert.Equal(t, 35, m.Confidence)
}

func TestScorePair_EmailDomainIsCaseSensitive(t *testing.T) {
	a := &types.Lead{ID: "1", CompanyName: "Northwind", Email: "j@x.com", ContactPerson: "Jane Doe",
		Region: types.RegionUAE, Service: types.ServiceWebsiteDevelopment}
	b := &types.Lead{ID: "2", CompanyName: "Contoso", Email: "J@X.COM", ContactPerson: "Jane Doe",
		Region: types.RegionUAE, Service: types.ServiceWebsiteDevelopment}

	m := ScorePair(a, b)
	assert.Equal(t, 60, m.Confidence)
	assert.NotContains(t, m.Reasons, ReasonEmailDomain)
	assert.Equal(t, []string{ReasonIdenticalEmail, ReasonRegionAndService, ReasonContactPerson}, m.Reasons)
	assert.Empty(t, Detect([]*types.Lead{a, b}))

	c := &types.Lead{ID: "3", Email: "ops@x.com"}
	assert.Equal(t, []string{ReasonEmailDomain}, ScorePair(a, c).Reasons)
}

func TestScorePair_MatchTypePrecedence(t *testing.T) {
	tests := []struct {
		name string
		a, b types.Lead
		want MatchType
		conf int
	}{
		{
			name: "no signals defaults to fuzzy",
			a:    types.Lead{CompanyName: "Alpha"},
			b:    types.Lead{CompanyName: "Omega"},
			want: MatchFuzzy,
			conf: 0,
		},
		{
			name: "exact survives identical email",
			a:    types.Lead{CompanyName: "Acme", Email: "sales@acme.com"},
			b:    types.Lead{CompanyName: "ACME", Email: "sales@acme.com"},
			want: MatchExact,
			conf: 100,
		},
		{
			name: "domain over fuzzy",
			a:    types.Lead{CompanyName: "Acme Corp", Email: "a@acme.com"},
			b:    types.Lead{CompanyName: "Acme Corps", Email: "b@acme.com"},
			want: MatchDomain,
			conf: 55,
		},
		{
			name: "phone over domain",
			a:    types.Lead{Email: "a@acme.com", Phone: "+1 555 0100"},
			b:    types.Lead{Email: "b@acme.com", Phone: "1-555-0100"},
			want: MatchPhone,
			conf: 55,
		},
		{
			name: "email not overridden by phone",
			a:    types.Lead{Email: "a@acme.com", Phone: "5550100"},
			b:    types.Lead{Email: "A@acme.com", Phone: "555 0100"},
			want: MatchEmail,
			conf: 90,
		},
		{
			name: "exact not overridden by phone",
			a:    types.Lead{CompanyName: "Acme", Phone: "5550100"},
			b:    types.Lead{CompanyName: "acme", Phone: "5550100"},
			want: MatchExact,
			conf: 70,
		},
		{
			name: "website, region and contact keep the default type",
			a: types.Lead{
				Website: "www.acme.com", Region: types.RegionUAE, Service: types.ServiceWebsiteDevelopment,
				ContactPerson: "Ahmed Al-Rashid",
			},
			b: types.Lead{
				Website: "https://acme.com/about", Region: types.RegionUAE, Service: types.ServiceWebsiteDevelopment,
				ContactPerson: "Ahmed Al Rashid",
			},
			want: MatchFuzzy,
			conf: 60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ScorePair(&tt.a, &tt.b)
			assert.Equal(t, tt.want, m.MatchType)
			assert.Equal(t, tt.conf, m.Confidence)
		})
	}
}

func TestScorePair_ReasonOrderAndCap(t *testing.T) {
	a := &types.Lead{
		CompanyName: "TechCorp Solutions", ContactPerson: "Ahmed Al-Rashid",
		Email: "ahmed@techcorp.ae", Phone: "+971-50-123-4567", Website: "techcorp.ae",
		Region: types.RegionUAE, Service: types.ServiceWebsiteDevelopment,
	}
	b := a.Clone()

	m := ScorePair(a, b)
	assert.Equal(t, 100, m.Confidence)
	assert.Equal(t, MatchExact, m.MatchType)
	assert.Equal(t, []string{
		ReasonIdenticalName,
		ReasonEmailDomain,
		ReasonIdenticalEmail,
		ReasonPhone,
		ReasonWebsiteDomain,
		ReasonRegionAndService,
		ReasonContactPerson,
	}, m.Reasons)
}

func TestScorePair_AbsentFieldsDoNotFire(t *testing.T) {
	a := &types.Lead{ID: "1"}
	b := &types.Lead{ID: "2"}

	m := ScorePair(a, b)
	assert.Zero(t, m.Confidence)
	assert.Empty(t, m.Reasons)
	assert.Equal(t, MatchFuzzy, m.MatchType)

	// addresses without a domain never count as the same domain
	a.Email, b.Email = "alice", "bob"
	assert.Zero(t, ScorePair(a, b).Confidence)
}

func TestScorePair_Symmetric(t *testing.T) {
	a := &types.Lead{CompanyName: "Global Retail", Email: "ops@globalretail.com", Phone: "+1 212 555 0199"}
	b := &types.Lead{CompanyName: "Global Retail Inc", Email: "sales@globalretail.com", Phone: "12125550199"}

	assert.Equal(t, ScorePair(a, b), ScorePair(b, a))
}
