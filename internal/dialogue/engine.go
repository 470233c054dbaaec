// Package dialogue drives the guided campaign conversation. Each turn loads
// the user's session, applies one input to the state machine and saves the
// session as its last step, so a turn that fails midway leaves the previous
// session untouched.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/adpilot/backend/internal/apperr"
	"github.com/adpilot/backend/internal/generation"
	"github.com/adpilot/backend/internal/models"
	"github.com/adpilot/backend/internal/services"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Quick reply values
const (
	replyReview    = "review_campaign"
	replyChange    = "change_something"
	replyLaunch    = "launch_campaign"
	replyStartOver = "start_over"
)

type Generator interface {
	Run(ctx context.Context, objective, url string) *generation.Result
}

type Provisioner interface {
	CreateFullCampaign(ctx context.Context, ownerID uuid.UUID, spec services.CampaignSpec) (*models.CampaignGraph, services.MirrorReport, error)
}

type Engine struct {
	store       SessionStore
	generator   Generator
	provisioner Provisioner
	assistant   Assistant
	dailyBudget decimal.Decimal
	now         func() time.Time
	log         *zap.Logger
}

func NewEngine(store SessionStore, generator Generator, provisioner Provisioner, dailyBudget decimal.Decimal, log *zap.Logger) *Engine {
	return &Engine{
		store:       store,
		generator:   generator,
		provisioner: provisioner,
		dailyBudget: dailyBudget,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log,
	}
}

// Start returns the user's session, opening a new one with the greeting if
// there is none.
func (e *Engine) Start(ctx context.Context, userID uuid.UUID) (*Session, error) {
	s, err := e.store.Load(ctx, userID)
	if err != nil || s != nil {
		return s, err
	}

	lease, err := e.store.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer lease.Release()
	if s, err = e.store.Load(ctx, userID); err != nil || s != nil {
		return s, err
	}
	s = e.open(userID)
	if err := lease.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Handle applies one user input and returns the updated session and the
// replies produced by this turn.
func (e *Engine) Handle(ctx context.Context, userID uuid.UUID, input string) (*Session, []Message, error) {
	lease, err := e.store.Lock(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	defer lease.Release()

	s, err := e.store.Load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		s = e.open(userID)
	}
	if !s.State.Valid() {
		return nil, nil, fmt.Errorf("session for %s has unknown state %q", userID, s.State)
	}

	before := len(s.History)
	if err := e.step(ctx, s, strings.TrimSpace(input)); err != nil {
		return nil, nil, err
	}
	if err := lease.Save(ctx, s); err != nil {
		if errors.Is(err, apperr.ErrTurnInProgress) {
			e.log.Warn("turn outlived its lock, discarding its result", zap.String("user_id", userID.String()))
		}
		return nil, nil, err
	}

	var replies []Message
	for _, t := range s.History[before:] {
		replies = append(replies, t.Replies...)
	}
	return s, replies, nil
}

func (e *Engine) Reset(ctx context.Context, userID uuid.UUID) error {
	lease, err := e.store.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer lease.Release()
	return lease.Delete(ctx)
}

func (e *Engine) open(userID uuid.UUID) *Session {
	s := newSession(userID)
	_ = s.advance(StateAskObjective, "", e.now(),
		objectivePrompt("Hi! I'll help you set up an ad campaign. What's your main objective?"))
	return s
}

func (e *Engine) step(ctx context.Context, s *Session, input string) error {
	switch s.State {
	case StateAskObjective:
		return e.askObjective(s, input)
	case StateAskURL:
		return e.askURL(ctx, s, input)
	case StateAskAgeRange:
		return e.askAgeRange(s, input)
	case StateAskInterests:
		return e.askInterests(s, input)
	case StateAskReview:
		return e.askReview(s, input)
	case StateFinalConfirmation:
		return e.finalConfirmation(ctx, s, input)
	case StateCompleted:
		return e.completed(ctx, s, input)
	}
	return fmt.Errorf("no handler for dialogue state %q", s.State)
}

func (e *Engine) askObjective(s *Session, input string) error {
	o, ok := matchObjective(input)
	if !ok {
		return s.advance(StateAskObjective, input, e.now(),
			objectivePrompt("I didn't quite get that. Please select one of the objectives or type your main goal."))
	}
	s.Draft.Objective = o.ID
	return s.advance(StateAskURL, input, e.now(), TextMessage{
		Text: fmt.Sprintf("Great! You've selected %q. Now, please provide the website URL you want to promote.", o.Title),
	})
}

func (e *Engine) askURL(ctx context.Context, s *Session, input string) error {
	u, err := services.ParseLandingURL(input)
	if err != nil {
		return s.advance(StateAskURL, input, e.now(), TextMessage{
			Text: "That doesn't look like a valid URL. Please provide a full website URL (e.g., https://yourwebsite.com).",
		})
	}
	s.Draft.URL = u.String()
	if err := s.advance(StateThinking, input, e.now(), TextMessage{
		Text: "Thanks! I'm now analyzing your website to suggest images and ad copy. This might take a moment...",
	}); err != nil {
		return err
	}

	res := e.generator.Run(ctx, s.Draft.Objective, s.Draft.URL)
	s.Draft.Images = mergeImages(res.Images, res.SourceImages)
	s.Draft.ImageURL = res.DefaultImage()
	s.Draft.Copies = res.Copies
	s.Draft.SelectedCopy = 0

	var replies []Message
	if len(s.Draft.Images) > 0 {
		replies = append(replies, ImagesMessage{Text: "I've found some images for your ad. Please select one:", Images: s.Draft.Images})
	}
	if len(s.Draft.Copies) > 0 {
		replies = append(replies, AdCopyMessage{Text: "Here are some ad copy variations:", Copies: s.Draft.Copies})
	}
	if len(replies) == 0 {
		e.log.Warn("dialogue generation produced nothing",
			zap.String("user_id", s.UserID.String()), zap.Int("degraded", len(res.Degraded)))
		replies = append(replies, TextMessage{Text: "I couldn't generate creative from that page, so we'll start with a blank ad. You can still continue."})
	}
	replies = append(replies, TextMessage{Text: "Now, let's talk about your target audience. What age range are you targeting?"})
	return s.advance(StateAskAgeRange, "", e.now(), replies...)
}

func (e *Engine) askAgeRange(s *Session, input string) error {
	if handled, err := e.selection(s, input); handled {
		return err
	}
	ages, res := parseAgeRange(input)
	switch res {
	case ageMalformed:
		return s.advance(StateAskAgeRange, input, e.now(),
			TextMessage{Text: "Please provide the age range in the format 'min-max' (e.g., '18-35')."})
	case ageOutOfRange:
		return s.advance(StateAskAgeRange, input, e.now(), TextMessage{
			Text: fmt.Sprintf("Please provide a valid age range between %d and %d (e.g., '25-45').", models.MinTargetAge, models.MaxTargetAge),
		})
	}
	s.Draft.AgeRange = ages
	return s.advance(StateAskInterests, input, e.now(), TextMessage{
		Text: fmt.Sprintf("Got it! Targeting ages %d-%d. What are some interests your audience has? You can list a few, separated by commas.", ages[0], ages[1]),
	})
}

func (e *Engine) askInterests(s *Session, input string) error {
	if handled, err := e.selection(s, input); handled {
		return err
	}
	interests := parseInterests(input)
	if len(interests) == 0 {
		return s.advance(StateAskInterests, input, e.now(), TextMessage{Text: "Please list at least one interest."})
	}
	s.Draft.Interests = interests
	return s.advance(StateAskReview, input, e.now(), reviewPrompt(
		"Excellent! We have your objective, URL, creative, copy, age range, and interests. Are you ready to review your campaign?"))
}

func (e *Engine) askReview(s *Session, input string) error {
	if handled, err := e.selection(s, input); handled {
		return err
	}
	switch classify(input, reviewYes, reviewNo) {
	case choiceYes:
		return s.advance(StateFinalConfirmation, input, e.now(),
			SummaryMessage{Text: "Here's a summary of your campaign:", Summary: e.summary(s.Draft)},
			launchPrompt("Does everything look good? Shall we launch your campaign?"))
	case choiceNo:
		s.Draft = Draft{}
		return s.advance(StateAskObjective, input, e.now(),
			objectivePrompt("Okay, let's start again from the top. What's your main objective?"))
	}
	return s.advance(StateAskReview, input, e.now(), reviewPrompt("Would you like to review your campaign?"))
}

func (e *Engine) finalConfirmation(ctx context.Context, s *Session, input string) error {
	switch classify(input, launchYes, launchNo) {
	case choiceNo:
		s.Draft = Draft{}
		return s.advance(StateAskObjective, input, e.now(),
			objectivePrompt("Okay, let's start over. What's your main objective?"))
	case choiceUnknown:
		return s.advance(StateFinalConfirmation, input, e.now(),
			launchPrompt("Shall we launch your campaign, or start over?"))
	}

	log := e.log.With(zap.String("user_id", s.UserID.String()))
	graph, report, err := e.provisioner.CreateFullCampaign(ctx, s.UserID, e.spec(s.Draft))
	if err != nil {
		if apperr.IsValidation(err) {
			return s.advance(StateFinalConfirmation, input, e.now(),
				launchPrompt(fmt.Sprintf("I couldn't launch this campaign: %v. You can start over to fix it.", err)))
		}
		log.Error("launch from dialogue failed", zap.Error(err))
		return s.advance(StateFinalConfirmation, input, e.now(),
			launchPrompt("Something went wrong while launching your campaign. Please try again."))
	}

	id := graph.Campaign.ID
	s.Draft.CampaignID = &id
	log.Info("campaign launched from dialogue", zap.String("campaign_id", id.String()), zap.Bool("mirrored", report.OK()))

	replies := []Message{TextMessage{Text: "Your campaign has been successfully launched!"}}
	if !report.OK() {
		replies = append(replies, TextMessage{
			Text: "It's saved, but some parts couldn't be published to the ad platform yet. They will show up in your dashboard.",
		})
	}
	return s.advance(StateCompleted, input, e.now(), replies...)
}

// selection handles select_image:N and select_copy:N as a re-prompt of the
// current state.
func (e *Engine) selection(s *Session, input string) (bool, error) {
	kind, i, ok := parseSelection(input)
	if !ok {
		return false, nil
	}
	var reply string
	switch {
	case kind == "image" && i < len(s.Draft.Images):
		s.Draft.ImageURL = s.Draft.Images[i]
		reply = fmt.Sprintf("Selected image %d.", i+1)
	case kind == "copy" && i < len(s.Draft.Copies):
		s.Draft.SelectedCopy = i
		reply = fmt.Sprintf("Selected ad copy variation %d.", i+1)
	default:
		reply = fmt.Sprintf("There is no %s number %d to select.", kind, i+1)
	}
	return true, s.advance(s.State, input, e.now(), TextMessage{Text: reply})
}

func (e *Engine) spec(d Draft) services.CampaignSpec {
	o, _ := models.LookupObjective(d.Objective)
	variant := d.selectedCopy()
	return services.CampaignSpec{
		Name:        fmt.Sprintf("%s – %s", o.Title, hostOf(d.URL)),
		Objective:   d.Objective,
		DailyBudget: e.dailyBudget,
		Targeting: models.Targeting{
			AgeMin:    d.AgeRange[0],
			AgeMax:    d.AgeRange[1],
			Interests: d.Interests,
		},
		Creative: services.CreativeSpec{
			ImageURL:    d.ImageURL,
			LinkURL:     d.URL,
			Headline:    variant.Headline,
			PrimaryText: variant.PrimaryText,
		},
	}
}

func (e *Engine) summary(d Draft) Summary {
	o, _ := models.LookupObjective(d.Objective)
	variant := d.selectedCopy()
	return Summary{
		Objective:      d.Objective,
		ObjectiveTitle: o.Title,
		URL:            d.URL,
		AgeMin:         d.AgeRange[0],
		AgeMax:         d.AgeRange[1],
		Interests:      d.Interests,
		ImageURL:       d.ImageURL,
		Headline:       variant.Headline,
		PrimaryText:    variant.PrimaryText,
		DailyBudget:    e.dailyBudget.StringFixed(2),
	}
}

func objectivePrompt(text string) QuickRepliesMessage {
	replies := make([]QuickReply, 0, len(models.Objectives))
	for _, o := range models.Objectives {
		replies = append(replies, QuickReply{Label: o.Title, Value: o.ID})
	}
	return QuickRepliesMessage{Text: text, Replies: replies}
}

func reviewPrompt(text string) QuickRepliesMessage {
	return QuickRepliesMessage{Text: text, Replies: []QuickReply{
		{Label: "Yes, review my campaign", Value: replyReview},
		{Label: "No, I want to change something", Value: replyChange},
	}}
}

func launchPrompt(text string) QuickRepliesMessage {
	return QuickRepliesMessage{Text: text, Replies: []QuickReply{
		{Label: "Launch Campaign", Value: replyLaunch},
		{Label: "Start Over", Value: replyStartOver},
	}}
}

func mergeImages(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range lists {
		for _, img := range l {
			if img != "" && !seen[img] {
				seen[img] = true
				out = append(out, img)
			}
		}
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
