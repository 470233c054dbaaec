package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adpilot/backend/internal/adplatform"
	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/events"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/repositories"
	"github.com/google/uuid"
)

// memDB is an in-memory record store with the same foreign-key shape as the
// Postgres schema.
type memDB struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]models.Campaign
	adSets    map[uuid.UUID]models.AdSet
	creatives map[uuid.UUID]models.AdCreative
	copies    map[uuid.UUID]models.AdCopy
	ads       map[uuid.UUID]models.Ad
	audit     []models.AuditLog
	failOn    map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		campaigns: map[uuid.UUID]models.Campaign{},
		adSets:    map[uuid.UUID]models.AdSet{},
		creatives: map[uuid.UUID]models.AdCreative{},
		copies:    map[uuid.UUID]models.AdCopy{},
		ads:       map[uuid.UUID]models.Ad{},
		failOn:    map[string]error{},
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Campaigns: memCampaigns{db},
		AdSets:    memAdSets{db},
		Creatives: memCreatives{db},
		Ads:       memAds{db},
		Audit:     memAudit{db},
	}
}

func (db *memDB) fail(op string) error {
	return db.failOn[op]
}

func (db *memDB) counts() (campaigns, adSets, creatives, copies, ads int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.campaigns), len(db.adSets), len(db.creatives), len(db.copies), len(db.ads)
}

func strPtr(s string) *string { return &s }

type memCampaigns struct{ db *memDB }

func (m memCampaigns) Create(_ context.Context, c *models.Campaign) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fail("campaign.create"); err != nil {
		return err
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.db.campaigns[c.ID] = *c
	return nil
}

func (m memCampaigns) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.campaigns[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (m memCampaigns) Update(_ context.Context, c *models.Campaign) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.campaigns[c.ID]; !ok {
		return apperr.ErrNotFound
	}
	c.UpdatedAt = time.Now()
	m.db.campaigns[c.ID] = *c
	return nil
}

func (m memCampaigns) SetExternalID(_ context.Context, id uuid.UUID, ext string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fail("campaign.set_external_id"); err != nil {
		return err
	}
	c := m.db.campaigns[id]
	c.ExternalID = strPtr(ext)
	m.db.campaigns[id] = c
	return nil
}

func (m memCampaigns) List(_ context.Context, f repositories.CampaignFilter) ([]models.Campaign, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []models.Campaign
	for _, c := range m.db.campaigns {
		if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m memCampaigns) GetGraph(_ context.Context, id uuid.UUID) (*models.CampaignGraph, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c, ok := m.db.campaigns[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	g := &models.CampaignGraph{Campaign: c}
	sets := map[uuid.UUID]bool{}
	for _, s := range m.db.adSets {
		if s.CampaignID == id {
			g.AdSets = append(g.AdSets, s)
			sets[s.ID] = true
		}
	}
	for _, cr := range m.db.creatives {
		if cr.CampaignID == id {
			g.Creatives = append(g.Creatives, cr)
		}
	}
	for _, a := range m.db.ads {
		if sets[a.AdSetID] {
			g.Ads = append(g.Ads, a)
		}
	}
	return g, nil
}

func (m memCampaigns) DeleteCascade(_ context.Context, id uuid.UUID) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fail("campaign.delete"); err != nil {
		return err
	}
	if _, ok := m.db.campaigns[id]; !ok {
		return apperr.ErrNotFound
	}
	sets, creatives := map[uuid.UUID]bool{}, map[uuid.UUID]bool{}
	for sid, s := range m.db.adSets {
		if s.CampaignID == id {
			sets[sid] = true
		}
	}
	for cid, c := range m.db.creatives {
		if c.CampaignID == id {
			creatives[cid] = true
		}
	}
	for aid, a := range m.db.ads {
		if sets[a.AdSetID] || creatives[a.CreativeID] {
			delete(m.db.ads, aid)
		}
	}
	for cpid, cp := range m.db.copies {
		if creatives[cp.CreativeID] {
			delete(m.db.copies, cpid)
		}
	}
	for sid := range sets {
		delete(m.db.adSets, sid)
	}
	for cid := range creatives {
		delete(m.db.creatives, cid)
	}
	delete(m.db.campaigns, id)
	return nil
}

type memAdSets struct{ db *memDB }

func (m memAdSets) Create(_ context.Context, s *models.AdSet) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fail("ad_set.create"); err != nil {
		return err
	}
	if _, ok := m.db.campaigns[s.CampaignID]; !ok {
		return errors.New("foreign key violation: campaign")
	}
	s.ID = uuid.New()
	m.db.adSets[s.ID] = *s
	return nil
}

func (m memAdSets) SetExternalID(_ context.Context, id uuid.UUID, ext string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s := m.db.adSets[id]
	s.ExternalID = strPtr(ext)
	m.db.adSets[id] = s
	return nil
}

type memCreatives struct{ db *memDB }

func (m memCreatives) Create(_ context.Context, c *models.AdCreative) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.campaigns[c.CampaignID]; !ok {
		return errors.New("foreign key violation: campaign")
	}
	c.ID = uuid.New()
	m.db.creatives[c.ID] = *c
	return nil
}

func (m memCreatives) SetExternalID(_ context.Context, id uuid.UUID, ext string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	c := m.db.creatives[id]
	c.ExternalID = strPtr(ext)
	m.db.creatives[id] = c
	return nil
}

func (m memCreatives) ExistsForJob(_ context.Context, campaignID, jobID uuid.UUID) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fail("creative.exists"); err != nil {
		return false, err
	}
	for _, c := range m.db.creatives {
		if c.CampaignID == campaignID && c.JobID != nil && *c.JobID == jobID {
			return true, nil
		}
	}
	return false, nil
}

func (m memCreatives) CreateGenerated(_ context.Context, c *models.AdCreative, copies []models.AdCopy) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if err := m.db.fail("creative.create_generated"); err != nil {
		return false, err
	}
	for _, existing := range m.db.creatives {
		if existing.CampaignID == c.CampaignID && existing.JobID != nil && c.JobID != nil && *existing.JobID == *c.JobID {
			return false, nil
		}
	}
	c.ID = uuid.New()
	for _, cp := range copies {
		cp.ID = uuid.New()
		cp.CreativeID = c.ID
		m.db.copies[cp.ID] = cp
		c.Copies = append(c.Copies, cp)
	}
	m.db.creatives[c.ID] = *c
	return true, nil
}

type memAds struct{ db *memDB }

func (m memAds) Create(_ context.Context, a *models.Ad) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.adSets[a.AdSetID]; !ok {
		return errors.New("foreign key violation: ad set")
	}
	if _, ok := m.db.creatives[a.CreativeID]; !ok {
		return errors.New("foreign key violation: creative")
	}
	a.ID = uuid.New()
	m.db.ads[a.ID] = *a
	return nil
}

func (m memAds) SetExternalID(_ context.Context, id uuid.UUID, ext string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a := m.db.ads[id]
	a.ExternalID = strPtr(ext)
	m.db.ads[id] = a
	return nil
}

type memAudit struct{ db *memDB }

func (m memAudit) Log(_ context.Context, e models.AuditLog) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.audit = append(m.db.audit, e)
	return nil
}

// fakePlatform records every call. Operations listed in fail return that error;
// operations listed in hang block until the call context expires.
type fakePlatform struct {
	mu       sync.Mutex
	calls    []string
	adSets   []adplatform.AdSetParams
	fail     map[string]error
	hang     map[string]bool
	insights map[string][]models.Insight
	seq      int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{fail: map[string]error{}, hang: map[string]bool{}, insights: map[string][]models.Insight{}}
}

func (p *fakePlatform) call(ctx context.Context, op string) (string, error) {
	p.mu.Lock()
	p.calls = append(p.calls, op)
	p.seq++
	id := fmt.Sprintf("%s_%d", op, p.seq)
	err := p.fail[op]
	hang := p.hang[op]
	p.mu.Unlock()
	if hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *fakePlatform) callsTo(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (p *fakePlatform) failAll(err error) {
	for _, op := range []string{"campaign", "adset", "creative", "ad", "update", "delete_campaign", "delete_object", "insights"} {
		p.fail[op] = err
	}
}

func (p *fakePlatform) CreateCampaign(ctx context.Context, _ adplatform.CampaignParams) (string, error) {
	return p.call(ctx, "campaign")
}

func (p *fakePlatform) CreateAdSet(ctx context.Context, params adplatform.AdSetParams) (string, error) {
	p.mu.Lock()
	p.adSets = append(p.adSets, params)
	p.mu.Unlock()
	return p.call(ctx, "adset")
}

func (p *fakePlatform) CreateAdCreative(ctx context.Context, _ adplatform.CreativeParams) (string, error) {
	return p.call(ctx, "creative")
}

func (p *fakePlatform) CreateAd(ctx context.Context, _ adplatform.AdParams) (string, error) {
	return p.call(ctx, "ad")
}

func (p *fakePlatform) UpdateCampaign(ctx context.Context, _ string, _ adplatform.CampaignUpdate) error {
	_, err := p.call(ctx, "update")
	return err
}

func (p *fakePlatform) DeleteCampaign(ctx context.Context, _ string) error {
	_, err := p.call(ctx, "delete_campaign")
	return err
}

func (p *fakePlatform) DeleteObject(ctx context.Context, _ string) error {
	_, err := p.call(ctx, "delete_object")
	return err
}

func (p *fakePlatform) GetInsights(ctx context.Context, externalID, level string, _ adplatform.DateRange) ([]models.Insight, error) {
	if _, err := p.call(ctx, "insights"); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.insights[level+":"+externalID], nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *fakePublisher) Publish(_ context.Context, _ string, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
