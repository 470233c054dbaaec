package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/events"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func validSpec() CampaignSpec {
	return CampaignSpec{
		Name:        "Sales – example.com",
		Objective:   models.ObjectiveSales,
		DailyBudget: decimal.RequireFromString("12.50"),
		Targeting:   models.Targeting{AgeMin: 20, AgeMax: 30, Interests: []string{"fitness", " health "}},
		Creative: CreativeSpec{
			ImageURL:    "https://cdn.test/a.png",
			LinkURL:     "https://example.com",
			Headline:    "Train Smarter",
			PrimaryText: "Plans from $9.",
		},
	}
}

type sagaFixture struct {
	db       *memDB
	platform *fakePlatform
	pub      *fakePublisher
	svc      *ProvisioningService
}

func newSaga(t *testing.T) *sagaFixture {
	t.Helper()
	f := &sagaFixture{db: newMemDB(), platform: newFakePlatform(), pub: &fakePublisher{}}
	f.svc = NewProvisioningService(f.db.stores(), f.platform, f.pub, 50*time.Millisecond, 100, zap.NewNop())
	return f
}

func statuses(r MirrorReport) map[string]MirrorStatus {
	out := map[string]MirrorStatus{}
	for _, a := range r.Attempts {
		out[a.Resource] = a.Status
	}
	return out
}

func TestCreateFullCampaignAllMirrored(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()

	graph, report, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.True(t, report.OK())
	assert.Len(t, report.Attempts, 4)

	require.NotNil(t, graph.Campaign.ExternalID)
	require.Len(t, graph.AdSets, 1)
	require.Len(t, graph.Creatives, 1)
	require.Len(t, graph.Ads, 1)
	assert.NotNil(t, graph.AdSets[0].ExternalID)
	assert.NotNil(t, graph.Creatives[0].ExternalID)
	assert.NotNil(t, graph.Ads[0].ExternalID)
	assert.Equal(t, owner, graph.Campaign.OwnerID)
	assert.Equal(t, models.CampaignStatusDraft, graph.Campaign.Status)

	stored, err := f.db.stores().Campaigns.GetGraph(context.Background(), graph.Campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, *graph.Campaign.ExternalID, *stored.Campaign.ExternalID)
	assert.Equal(t, []string{"fitness", "health"}, stored.AdSets[0].Targeting.Interests)

	assert.Equal(t, []string{events.EventCampaignProvisioned}, f.pub.types())
	assert.Equal(t, owner.String(), f.pub.events[0].UserID())
	require.Len(t, f.db.audit, 1)
	assert.Equal(t, models.AuditCampaignCreated, f.db.audit[0].Action)
}

func TestCreateFullCampaignPlatformUnreachable(t *testing.T) {
	f := newSaga(t)
	f.platform.failAll(errors.New("dial tcp: connection refused"))

	graph, report, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	require.NoError(t, err)

	campaigns, adSets, creatives, _, ads := f.db.counts()
	assert.Equal(t, []int{1, 1, 1, 1}, []int{campaigns, adSets, creatives, ads})
	assert.Nil(t, graph.Campaign.ExternalID)
	assert.Nil(t, graph.AdSets[0].ExternalID)
	assert.Nil(t, graph.Creatives[0].ExternalID)
	assert.Nil(t, graph.Ads[0].ExternalID)

	failures := report.Failures()
	require.Len(t, failures, 4)
	for _, fe := range failures {
		var pme *apperr.PlatformMirrorError
		assert.True(t, errors.As(fe, &pme))
	}
	assert.Error(t, report.Err())
	assert.Equal(t, map[string]MirrorStatus{
		ResourceCampaign: MirrorFailed,
		ResourceAdSet:    MirrorSkipped,
		ResourceCreative: MirrorFailed,
		ResourceAd:       MirrorSkipped,
	}, statuses(report))

	// children are never sent to the platform without a mirrored parent
	assert.Zero(t, f.platform.callsTo("adset"))
	assert.Zero(t, f.platform.callsTo("ad"))
}

func TestAdSetMirrorRequiresCampaignMirror(t *testing.T) {
	f := newSaga(t)
	f.platform.fail["campaign"] = errors.New("(#100) invalid parameter")

	_, report, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	require.NoError(t, err)
	assert.Zero(t, f.platform.callsTo("adset"))
	assert.Equal(t, 1, f.platform.callsTo("creative"))
	assert.Zero(t, f.platform.callsTo("ad"))
	assert.Equal(t, MirrorSucceeded, statuses(report)[ResourceCreative])
	assert.Equal(t, MirrorSkipped, statuses(report)[ResourceAd])
}

func TestAdMirrorRequiresCreativeMirror(t *testing.T) {
	f := newSaga(t)
	f.platform.fail["creative"] = errors.New("page id missing")

	graph, report, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	require.NoError(t, err)
	assert.Equal(t, 1, f.platform.callsTo("adset"))
	assert.Zero(t, f.platform.callsTo("ad"))
	assert.NotNil(t, graph.AdSets[0].ExternalID)
	assert.Nil(t, graph.Ads[0].ExternalID)
	assert.Len(t, report.Failures(), 2)
}

func TestMirrorTimeoutIsRecorded(t *testing.T) {
	f := newSaga(t)
	f.platform.hang["campaign"] = true

	start := time.Now()
	graph, report, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Nil(t, graph.Campaign.ExternalID)

	failures := report.Failures()
	require.NotEmpty(t, failures)
	assert.Equal(t, ResourceCampaign, failures[0].Resource)
	assert.ErrorIs(t, failures[0], context.DeadlineExceeded)
}

func TestBudgetConvertedToMinorUnits(t *testing.T) {
	f := newSaga(t)
	graph, _, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	require.NoError(t, err)
	assert.Equal(t, int64(1250), graph.AdSets[0].DailyBudget)
	require.Len(t, f.platform.adSets, 1)
	assert.Equal(t, int64(1250), f.platform.adSets[0].DailyBudgetMinor)
}

func TestCreateFullCampaignValidationWritesNothing(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CampaignSpec)
		field  string
	}{
		{"empty name", func(s *CampaignSpec) { s.Name = "  " }, "name"},
		{"unknown objective", func(s *CampaignSpec) { s.Objective = "awareness" }, "objective"},
		{"zero budget", func(s *CampaignSpec) { s.DailyBudget = decimal.Zero }, "daily_budget"},
		{"sub-cent budget", func(s *CampaignSpec) { s.DailyBudget = decimal.RequireFromString("12.505") }, "daily_budget"},
		{"too young", func(s *CampaignSpec) { s.Targeting.AgeMin = 10 }, "targeting"},
		{"inverted ages", func(s *CampaignSpec) { s.Targeting.AgeMin, s.Targeting.AgeMax = 40, 30 }, "targeting"},
		{"bad link", func(s *CampaignSpec) { s.Creative.LinkURL = "ftp://example.com" }, "url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newSaga(t)
			spec := validSpec()
			tc.mutate(&spec)

			_, _, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), spec)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)

			campaigns, _, _, _, _ := f.db.counts()
			assert.Zero(t, campaigns)
			assert.Empty(t, f.platform.calls)
		})
	}
}

func TestStoreFailureAbortsWithoutRollback(t *testing.T) {
	f := newSaga(t)
	f.db.failOn["ad_set.create"] = errors.New("connection reset")

	graph, _, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	assert.Nil(t, graph)
	require.True(t, apperr.IsStore(err))

	campaigns, adSets, creatives, _, _ := f.db.counts()
	assert.Equal(t, 1, campaigns)
	assert.Zero(t, adSets)
	assert.Zero(t, creatives)
	assert.Zero(t, f.platform.callsTo("creative"))
}

func TestGetCampaignHidesOtherOwners(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()
	graph, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
	require.NoError(t, err)

	_, err = f.svc.GetCampaign(context.Background(), uuid.New(), graph.Campaign.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := f.svc.GetCampaign(context.Background(), owner, graph.Campaign.ID)
	require.NoError(t, err)
	assert.Len(t, got.Ads, 1)
}

func TestListCampaignsReturnsOwnersGraphs(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()
	for i := 0; i < 2; i++ {
		_, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
		require.NoError(t, err)
	}
	_, _, err := f.svc.CreateFullCampaign(context.Background(), uuid.New(), validSpec())
	require.NoError(t, err)

	graphs, err := f.svc.ListCampaigns(context.Background(), owner, repositories.CampaignFilter{})
	require.NoError(t, err)
	require.Len(t, graphs, 2)
	for _, g := range graphs {
		assert.Equal(t, owner, g.Campaign.OwnerID)
		assert.Len(t, g.AdSets, 1)
	}
}

func TestUpdateCampaignMirrorsStatus(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()
	graph, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
	require.NoError(t, err)

	status := models.CampaignStatusActive
	c, report, err := f.svc.UpdateCampaign(context.Background(), owner, graph.Campaign.ID, CampaignPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, c.Status)
	assert.True(t, report.OK())
	assert.Equal(t, 1, f.platform.callsTo("update"))
}

func TestUpdateCampaignMirrorFailureKeepsLocalChange(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()
	graph, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
	require.NoError(t, err)
	f.platform.fail["update"] = errors.New("rate limited")

	name := "Renamed"
	_, report, err := f.svc.UpdateCampaign(context.Background(), owner, graph.Campaign.ID, CampaignPatch{Name: &name})
	require.NoError(t, err)
	require.Len(t, report.Failures(), 1)

	stored, err := f.db.stores().Campaigns.GetByID(context.Background(), graph.Campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)
}

func TestUpdateCampaignRejectsBadPatch(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()
	graph, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
	require.NoError(t, err)

	bad := "archived"
	_, _, err = f.svc.UpdateCampaign(context.Background(), owner, graph.Campaign.ID, CampaignPatch{Status: &bad})
	assert.True(t, apperr.IsValidation(err))

	_, _, err = f.svc.UpdateCampaign(context.Background(), uuid.New(), graph.Campaign.ID, CampaignPatch{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteCampaignRemovesAllRows(t *testing.T) {
	for _, platformDown := range []bool{false, true} {
		f := newSaga(t)
		owner := uuid.New()
		graph, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
		require.NoError(t, err)
		// a generated creative with copies hangs off the same campaign
		job := uuid.New()
		_, err = memCreatives{f.db}.CreateGenerated(context.Background(),
			&models.AdCreative{CampaignID: graph.Campaign.ID, JobID: &job},
			[]models.AdCopy{{Headline: "h", PrimaryText: "p"}})
		require.NoError(t, err)

		if platformDown {
			f.platform.failAll(errors.New("service unavailable"))
		}
		report, err := f.svc.DeleteCampaign(context.Background(), owner, graph.Campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, !platformDown, report.OK())

		campaigns, adSets, creatives, copies, ads := f.db.counts()
		assert.Equal(t, []int{0, 0, 0, 0, 0}, []int{campaigns, adSets, creatives, copies, ads})
	}
}

func TestDeleteCampaignStoreFailure(t *testing.T) {
	f := newSaga(t)
	owner := uuid.New()
	graph, _, err := f.svc.CreateFullCampaign(context.Background(), owner, validSpec())
	require.NoError(t, err)
	f.db.failOn["campaign.delete"] = errors.New("deadlock detected")

	_, err = f.svc.DeleteCampaign(context.Background(), owner, graph.Campaign.ID)
	assert.True(t, apperr.IsStore(err))
}
