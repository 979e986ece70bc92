package chat

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/credentials"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	RoleUser  = "user"
	RoleModel = "model"

	FallbackReply = "Sorry, I did not quite get that."
	BusyReply     = "The assistant is busy right now, please try again later."
)

// DefaultCartKeywords mark a reply as having changed the cart.
var DefaultCartKeywords = []string{"giỏ hàng", "đã thêm", "added to cart"}

var productBlock = regexp.MustCompile(`FORMAT_PRODUCT:(\{.*?\})`)

type Asker interface {
	AskChat(ctx context.Context, cred credentials.Credential, message string, history []backend.ChatTurn) (string, error)
}

type Signal interface {
	Publish()
}

// ProductCard is a product suggestion embedded in a reply.
type ProductCard struct {
	ID            backend.ID      `json:"id"`
	Name          string          `json:"name"`
	Image         string          `json:"image"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
}

type Reply struct {
	Text        string        `json:"text"`
	Products    []ProductCard `json:"products,omitempty"`
	CartChanged bool          `json:"cart_changed"`
}

type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Assistant is the chat widget of one session. It keeps the conversation so every
// question is sent with its context.
type Assistant struct {
	asker    Asker
	creds    credentials.Provider
	signal   Signal
	keywords []string
	logger   *zap.Logger

	mu       sync.Mutex
	history  []backend.ChatTurn
	messages []Message
}

func New(asker Asker, creds credentials.Provider, signal Signal, keywords []string, l *zap.Logger) *Assistant {
	if len(keywords) == 0 {
		keywords = DefaultCartKeywords
	}
	return &Assistant{
		asker:    asker,
		creds:    creds,
		signal:   signal,
		keywords: keywords,
		logger:   logger.OrNop(l),
	}
}

// Ask never fails: backend errors turn into BusyReply and leave the history as it was.
func (a *Assistant) Ask(ctx context.Context, message string) Reply {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{Text: FallbackReply}
	}

	a.mu.Lock()
	history := append([]backend.ChatTurn(nil), a.history...)
	a.messages = append(a.messages, Message{Role: RoleUser, Text: message})
	a.mu.Unlock()

	cred, err := a.creds.Credential(ctx)
	if err != nil && !errors.Is(err, credentials.ErrNoCredential) {
		a.logger.Warn("chat credential lookup failed", zap.Error(err))
	}

	text, err := a.asker.AskChat(ctx, cred, message, history)
	if err != nil {
		logger.WithTrace(ctx, a.logger).Warn("chat request failed", zap.Error(err))
		a.mu.Lock()
		a.messages = append(a.messages, Message{Role: RoleModel, Text: BusyReply})
		a.mu.Unlock()
		return Reply{Text: BusyReply}
	}
	if strings.TrimSpace(text) == "" {
		text = FallbackReply
	}

	a.mu.Lock()
	a.history = append(a.history,
		backend.ChatTurn{Role: RoleUser, Parts: []backend.ChatPart{{Text: message}}},
		backend.ChatTurn{Role: RoleModel, Parts: []backend.ChatPart{{Text: text}}},
	)
	a.messages = append(a.messages, Message{Role: RoleModel, Text: text})
	a.mu.Unlock()

	reply := ParseReply(text)
	if a.mentionsCart(text) {
		reply.CartChanged = true
		if a.signal != nil {
			a.signal.Publish()
		}
	}
	return reply
}

// Messages returns the transcript shown in the widget.
func (a *Assistant) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Message(nil), a.messages...)
}

func (a *Assistant) Reset() {
	a.mu.Lock()
	a.history = nil
	a.messages = nil
	a.mu.Unlock()
}

func (a *Assistant) mentionsCart(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range a.keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// ParseReply pulls FORMAT_PRODUCT:{...} blocks out of text. Blocks that are not
// valid JSON are dropped from the product list but still removed from the text.
func ParseReply(text string) Reply {
	var products []ProductCard
	for _, m := range productBlock.FindAllStringSubmatch(text, -1) {
		var p ProductCard
		if err := json.Unmarshal([]byte(m[1]), &p); err == nil {
			products = append(products, p)
		}
	}
	clean := productBlock.ReplaceAllString(text, "")
	return Reply{Text: strings.TrimSpace(clean), Products: products}
}
