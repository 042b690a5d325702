package generator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"vaultline/bankfixture/internal/domain"
)

const (
	agentReply   = "I understand your concern. Let me help you with that."
	customerDone = "Thank you for looking into this."
)

// troubledTopicWeights skews customers in a household with a defaulted loan
// toward complaints (COMPLAINT, DISPUTE, LOAN, ACCOUNT_INQUIRY).
var (
	troubledTopics       = []string{topicComplaint, topicDispute, topicLoan, topicAccountInquiry}
	troubledTopicWeights = []int{40, 30, 20, 10}
)

// transcript is the JSON document stored in ChatRecord.Transcript.
type transcript struct {
	Messages []domain.ChatMessage `json:"messages"`
}

func encodeTranscript(msgs []domain.ChatMessage) (string, error) {
	raw, err := json.Marshal(transcript{Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	return string(raw), nil
}

// chatGenerator writes customer service history. It is independent of the
// ledger; only the relationship pattern adds to it later.
type chatGenerator struct {
	rng *source
	log *slog.Logger
}

func newChatGenerator(seed int64, log *slog.Logger) *chatGenerator {
	return &chatGenerator{rng: newSource(seed, streamChats), log: log}
}

func (g *chatGenerator) build(p *population) error {
	troubled := troubledHouseholds(p)
	n := int(math.Round(p.cfg.ChatsPerCustomer * float64(len(p.customers))))

	for k := 0; k < n; k++ {
		c := p.customer(int64(g.rng.Intn(len(p.customers)) + 1))
		start := g.rng.timeBetween(maxTime(p.windowStart, c.CustomerSince), p.asOf.Add(-2*time.Hour))

		topic := pick(g.rng, chatTopics)
		var sentiment float64
		var resolution string
		switch {
		case troubled[c.HouseholdID]:
			topic = troubledTopics[g.rng.weighted(troubledTopicWeights)]
			sentiment = g.rng.between(-0.8, -0.3)
			resolution = pick(g.rng, []string{resolutionEscalated, resolutionPending})
		case topic == topicComplaint:
			sentiment = g.rng.between(-0.9, -0.3)
			resolution = pick(g.rng, []string{resolutionEscalated, resolutionResolved, resolutionPending})
		case topic == topicDispute:
			sentiment = g.rng.between(-0.5, 0.2)
			resolution = pick(g.rng, []string{resolutionResolved, resolutionPending, resolutionEscalated})
		default:
			sentiment = g.rng.between(-0.2, 0.9)
			resolution = pick(g.rng, []string{resolutionResolved, resolutionResolved, resolutionPending})
		}

		opener := pick(g.rng, chatOpeners[topic])
		if _, err := g.add(p, c, start, topic, sentiment, resolution, opener, agentReply, customerDone); err != nil {
			return err
		}
	}
	g.log.Info("chat history written", "chats", len(p.chats), "troubled_households", len(troubled))
	return nil
}

// add records one session whose transcript alternates customer and agent
// lines a minute apart, and returns its id.
func (g *chatGenerator) add(p *population, c *domain.Customer, start time.Time, topic string, sentiment float64, resolution string, lines ...string) (int64, error) {
	msgs := make([]domain.ChatMessage, len(lines))
	for i, line := range lines {
		role := "customer"
		if i%2 == 1 {
			role = "agent"
		}
		msgs[i] = domain.ChatMessage{Role: role, Content: line, Timestamp: start.Add(time.Duration(i) * time.Minute)}
	}
	body, err := encodeTranscript(msgs)
	if err != nil {
		return 0, err
	}

	rec := domain.ChatRecord{
		CustomerID:       c.ID,
		SessionStart:     start,
		SessionEnd:       start.Add(time.Duration(g.rng.intBetween(5, 120)) * time.Minute),
		Channel:          pick(g.rng, chatChannels),
		AgentID:          fmt.Sprintf("AGENT_%d", g.rng.intBetween(100, 999)),
		Topic:            topic,
		SentimentScore:   decimal.NewFromFloat(sentiment).Round(2),
		ResolutionStatus: resolution,
		Transcript:       body,
	}
	if u, ok := p.loginUser(c.ID); ok {
		rec.UserID = int64Ptr(u.ID)
	}
	return p.addChat(rec), nil
}

// troubledHouseholds returns the multi-member households with a defaulted
// loan.
func troubledHouseholds(p *population) map[int64]bool {
	size := make(map[int64]int)
	for i := range p.customers {
		size[p.customers[i].HouseholdID]++
	}
	out := make(map[int64]bool)
	for i := range p.loans {
		l := &p.loans[i]
		hh := p.customer(l.CustomerID).HouseholdID
		if l.Status == domain.LoanDefaulted && size[hh] > 1 {
			out[hh] = true
		}
	}
	return out
}
