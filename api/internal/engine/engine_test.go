package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slip-bot/api/internal/clock"
	"slip-bot/api/internal/extract"
	"slip-bot/api/internal/ledger"
	"slip-bot/api/internal/session"
	"slip-bot/api/internal/slip"
)

const (
	chatID  = int64(100)
	ownerID = int64(7)
)

var t0 = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

type shown struct {
	ChatID    int64
	MessageID int
	Edited    bool
	Message
}

type fakeChat struct {
	mu     sync.Mutex
	nextID int
	log    []shown
}

func (c *fakeChat) Send(_ context.Context, chatID int64, m Message) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.log = append(c.log, shown{ChatID: chatID, MessageID: c.nextID, Message: m})
	return c.nextID, nil
}

func (c *fakeChat) Edit(_ context.Context, chatID int64, messageID int, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, shown{ChatID: chatID, MessageID: messageID, Edited: true, Message: m})
	return nil
}

func (c *fakeChat) last() shown {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.log) == 0 {
		return shown{}
	}
	return c.log[len(c.log)-1]
}

func (c *fakeChat) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.log)
}

func (c *fakeChat) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.log))
	for i, s := range c.log {
		out[i] = s.Text
	}
	return out
}

type fakeExtractor struct {
	fn func(img extract.Image) (slip.Record, error)
}

func (f fakeExtractor) Extract(_ context.Context, img extract.Image) (slip.Record, error) {
	return f.fn(img)
}

// byData extracts a record whose event is the image bytes.
func byData(conf float64) fakeExtractor {
	return fakeExtractor{fn: func(img extract.Image) (slip.Record, error) {
		c := conf
		return slip.Record{Event: string(img.Data), Confidence: &c}, nil
	}}
}

type fakeLedger struct {
	mu      sync.Mutex
	calls   int
	items   [][]slip.LedgerItem
	results []ledger.Result
	err     error
}

func (l *fakeLedger) CommitBets(_ context.Context, _ string, items []slip.LedgerItem) ([]ledger.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.items = append(l.items, items)
	if l.err != nil {
		return nil, l.err
	}
	if l.results != nil {
		return l.results, nil
	}
	out := make([]ledger.Result, len(items))
	for i := range out {
		out[i] = ledger.Result{OK: true}
	}
	return out, nil
}

type fakeAudit struct {
	receipts []ledger.Receipt
}

func (a *fakeAudit) RecordCommit(_ context.Context, r ledger.Receipt) error {
	a.receipts = append(a.receipts, r)
	return nil
}

type harness struct {
	e      *Engine
	clock  *clock.FakeClock
	chat   *fakeChat
	ledger *fakeLedger
	audit  *fakeAudit
}

func newHarness(t *testing.T, ex extract.Extractor) *harness {
	t.Helper()
	h := &harness{
		clock:  clock.Fake(t0),
		chat:   &fakeChat{},
		ledger: &fakeLedger{},
		audit:  &fakeAudit{},
	}
	n := 0
	h.e = New(DefaultConfig(), Deps{
		Clock:     h.clock,
		Chat:      h.chat,
		Extractor: ex,
		Ledger:    h.ledger,
		Audit:     h.audit,
		NewToken: func() string {
			n++
			return fmt.Sprintf("b%d", n)
		},
		Go: func(f func()) { f() },
	})
	return h
}

func (h *harness) batch(t *testing.T, token string) session.Batch {
	t.Helper()
	b, ok := h.e.Store().Batches.Get(token)
	require.True(t, ok, "batch %s", token)
	return b
}

func (h *harness) act(a Action) {
	h.e.HandleAction(context.Background(), ActionSignal{ChatID: chatID, UserID: ownerID, Action: a})
}

func (h *harness) reply(promptID int, text string) bool {
	return h.e.HandleText(context.Background(), TextSignal{ChatID: chatID, UserID: ownerID, ReplyTo: promptID, Text: text})
}

func (h *harness) submit(data string) {
	h.e.SubmitImage(context.Background(), ImageSignal{ChatID: chatID, UserID: ownerID, Image: []byte(data)})
}

func conf(v float64) *float64 { return &v }

func (h *harness) seed(confs ...float64) string {
	recs := make([]slip.Record, len(confs))
	for i, c := range confs {
		recs[i] = slip.Record{Event: fmt.Sprintf("Jogo %d", i+1), Confidence: conf(c)}
	}
	return h.e.open(context.Background(), chatID, ownerID, "", recs)
}

func events(b session.Batch) []string {
	out := make([]string, len(b.Items))
	for i, it := range b.Items {
		out[i] = it.Record.Event
	}
	return out
}

func TestCoalesce_BurstBecomesOneBatchInArrivalOrder(t *testing.T) {
	h := newHarness(t, byData(0.9))
	for _, d := range []string{"A", "B", "C", "D"} {
		h.submit(d)
		h.clock.Advance(time.Second)
	}
	assert.Equal(t, 0, h.e.Store().Batches.Len())

	h.clock.Advance(200 * time.Millisecond)
	require.Equal(t, 1, h.e.Store().Batches.Len())
	b := h.batch(t, "b1")
	assert.Equal(t, []string{"A", "B", "C", "D"}, events(b))
	assert.Equal(t, "2024-03-05", b.Items[0].Record.MatchDate)
	assert.Equal(t, 1, b.ReviewMessageID)
}

func TestCoalesce_SpacedArrivalsMakeSeparateBatches(t *testing.T) {
	h := newHarness(t, byData(0.9))
	h.submit("A")
	h.clock.Advance(1300 * time.Millisecond)
	h.submit("B")
	h.clock.Advance(1300 * time.Millisecond)

	assert.Equal(t, 2, h.e.Store().Batches.Len())
	assert.Equal(t, []string{"A"}, events(h.batch(t, "b1")))
	assert.Equal(t, []string{"B"}, events(h.batch(t, "b2")))
}

func TestCoalesce_AlbumsAreSeparateKeys(t *testing.T) {
	h := newHarness(t, byData(0.9))
	ctx := context.Background()
	h.e.SubmitImage(ctx, ImageSignal{ChatID: chatID, UserID: ownerID, AlbumID: "g1", Image: []byte("A")})
	h.e.SubmitImage(ctx, ImageSignal{ChatID: chatID, UserID: ownerID, AlbumID: "g2", Image: []byte("B")})
	h.clock.Advance(2 * time.Second)
	assert.Equal(t, 2, h.e.Store().Batches.Len())
}

func TestCoalesce_OutOfOrderExtractionKeepsArrivalOrder(t *testing.T) {
	h := newHarness(t, byData(0.9))
	var queued []func()
	h.e.goFn = func(f func()) { queued = append(queued, f) }

	for _, d := range []string{"A", "B", "C"} {
		h.submit(d)
		h.clock.Advance(100 * time.Millisecond)
	}
	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 0, h.e.Store().Batches.Len(), "must wait for running extractions")

	for i := len(queued) - 1; i >= 0; i-- {
		queued[i]()
	}
	h.clock.Advance(1200 * time.Millisecond)
	require.Equal(t, 1, h.e.Store().Batches.Len())
	assert.Equal(t, []string{"A", "B", "C"}, events(h.batch(t, "b1")))
}

func TestCoalesce_CaptionFirstLineIsBookHint(t *testing.T) {
	h := newHarness(t, byData(0.9))
	h.e.SubmitImage(context.Background(), ImageSignal{ChatID: chatID, UserID: ownerID, Image: []byte("A"), Caption: "Betano\nmúltipla"})
	h.clock.Advance(2 * time.Second)
	b := h.batch(t, "b1")
	assert.Equal(t, "Betano", b.BookHint)
	assert.Equal(t, "betano", b.Items[0].Record.Book)
}

func TestExtractionFailure_DropsItemAndTellsUser(t *testing.T) {
	h := newHarness(t, fakeExtractor{fn: func(img extract.Image) (slip.Record, error) {
		if string(img.Data) == "bad" {
			return slip.Record{}, errors.New("boom")
		}
		return slip.Record{Event: string(img.Data)}, nil
	}})
	h.submit("A")
	h.submit("bad")
	h.submit("C")
	h.clock.Advance(2 * time.Second)

	assert.Equal(t, []string{"A", "C"}, events(h.batch(t, "b1")))
	assert.Contains(t, strings.Join(h.chat.texts(), "\n"), "Não consegui ler um dos bilhetes")
}

// hangingExtractor blocks on "slow" images until its context ends.
type hangingExtractor struct {
	entered chan struct{}
}

func (x hangingExtractor) Extract(ctx context.Context, img extract.Image) (slip.Record, error) {
	if string(img.Data) == "slow" {
		close(x.entered)
		<-ctx.Done()
		return slip.Record{}, ctx.Err()
	}
	return slip.Record{Event: string(img.Data)}, nil
}

func TestExtractionTimeout_DropsSlotAndFlushes(t *testing.T) {
	ex := hangingExtractor{entered: make(chan struct{})}
	h := newHarness(t, ex)
	done := make(chan struct{})
	first := true
	h.e.goFn = func(f func()) {
		if first {
			first = false
			go func() {
				defer close(done)
				f()
			}()
			return
		}
		f()
	}

	h.submit("slow")
	<-ex.entered
	h.submit("B")
	h.clock.Advance(time.Minute)
	assert.True(t, h.e.Coalescer().Open(GroupKey(chatID, "")), "still within the extraction timeout")

	h.clock.Advance(30 * time.Second)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("extraction was not cancelled")
	}
	h.clock.Advance(2 * time.Second)

	assert.False(t, h.e.Coalescer().Open(GroupKey(chatID, "")))
	assert.Equal(t, []string{"B"}, events(h.batch(t, "b1")))
	assert.Contains(t, strings.Join(h.chat.texts(), "\n"), "Não consegui ler um dos bilhetes")
}

func TestExtractionFailure_AllFailedShowsEmptyBatch(t *testing.T) {
	h := newHarness(t, fakeExtractor{fn: func(extract.Image) (slip.Record, error) {
		return slip.Record{}, errors.New("boom")
	}})
	h.submit("A")
	h.clock.Advance(2 * time.Second)

	b := h.batch(t, "b1")
	assert.Empty(t, b.Items)
	last := h.chat.last()
	assert.Contains(t, last.Text, "Nenhuma aposta")
	require.Len(t, last.Buttons, 1)
	require.Len(t, last.Buttons[0], 1)
	assert.Equal(t, Cancel("b1"), last.Buttons[0][0].Action)
}

func TestNotAuthorized_AbortsSubmission(t *testing.T) {
	h := newHarness(t, fakeExtractor{fn: func(extract.Image) (slip.Record, error) {
		return slip.Record{}, extract.ErrNotAuthorized
	}})
	h.e.cfg.LinkURL = "https://example.test/link"
	h.submit("A")
	h.submit("B")
	h.clock.Advance(5 * time.Second)

	assert.Equal(t, 0, h.e.Store().Batches.Len())
	assert.False(t, h.e.Coalescer().Open(GroupKey(chatID, "")))
	texts := h.chat.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[0], "https://example.test/link")
}

func TestRender_Pagination(t *testing.T) {
	b := session.Batch{Token: "tok"}
	for i := 0; i < 13; i++ {
		b.Items = append(b.Items, session.NewItem(slip.Record{Event: fmt.Sprintf("E%d", i)}))
	}
	for p := 0; p < 3; p++ {
		v := Render(b, p, 6)
		assert.Equal(t, 3, v.TotalPages)
		assert.Len(t, v.Shown, min(6, 13-6*p), "page %d", p)
		assert.Equal(t, 6*p, v.Shown[0])
	}

	v := Render(b, 99, 6)
	assert.Equal(t, 2, v.Page)

	first := Render(b, 0, 6)
	var nav []Action
	for _, row := range first.Buttons {
		for _, btn := range row {
			if btn.Action.Kind == KindPage {
				nav = append(nav, btn.Action)
			}
		}
	}
	assert.Equal(t, []Action{Page("tok", 1)}, nav)
}

func TestRender_SinglePageHasNoNavigation(t *testing.T) {
	b := session.Batch{Token: "tok", Items: []session.BatchItem{session.NewItem(slip.Record{Event: "A x B"})}}
	v := Render(b, 0, 6)
	assert.Equal(t, 1, v.TotalPages)
	for _, row := range v.Buttons {
		for _, btn := range row {
			assert.NotEqual(t, KindPage, btn.Action.Kind)
		}
	}
	assert.Contains(t, v.Text, "faltando")
}

func TestRoute(t *testing.T) {
	items := func(cs ...float64) []session.BatchItem {
		out := make([]session.BatchItem, len(cs))
		for i, c := range cs {
			out[i] = session.NewItem(slip.Record{Confidence: conf(c)})
		}
		return out
	}
	assert.Equal(t, Decision{Outcome: OutcomeCommit}, Route(items(0.9, 0.95), 0.6, 0.85))
	assert.Equal(t, Decision{Outcome: OutcomeFix, Index: 1}, Route(items(0.9, 0.5), 0.6, 0.85))
	assert.Equal(t, Decision{Outcome: OutcomeFix, Index: 0}, Route(items(0.3, 0.5, 0.7), 0.6, 0.85))
	assert.Equal(t, Decision{Outcome: OutcomeAsk}, Route(items(0.9, 0.7), 0.6, 0.85))

	missing := []session.BatchItem{session.NewItem(slip.Record{})}
	assert.Equal(t, OutcomeFix, Route(missing, 0.6, 0.85).Outcome)

	reviewed := session.NewItem(slip.Record{Confidence: conf(0.1)})
	reviewed.Reviewed = true
	assert.Equal(t, OutcomeCommit, Route([]session.BatchItem{reviewed}, 0.6, 0.85).Outcome)
}

func TestConfirm_HighConfidenceAutoCommits(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9, 0.95)
	before := h.chat.count()

	h.act(Confirm(tok))

	assert.Equal(t, 1, h.ledger.calls)
	assert.Equal(t, before+1, h.chat.count(), "only the result is shown")
	assert.Contains(t, h.chat.last().Text, "2 aposta(s) registrada(s)")
	_, ok := h.e.Store().Batches.Get(tok)
	assert.False(t, ok)
	require.Len(t, h.audit.receipts, 1)
	assert.Equal(t, 2, h.audit.receipts[0].OK)
}

func TestConfirm_LowConfidenceOpensFieldPicker(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9, 0.5)

	h.act(Confirm(tok))

	assert.Equal(t, 0, h.ledger.calls)
	last := h.chat.last()
	assert.Contains(t, last.Text, "Editando aposta 2")
	assert.Equal(t, EditField(tok, 0, 1, slip.FieldBook), last.Buttons[0][0].Action)
}

func TestConfirm_MediumConfidenceAsksThenForceCommits(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9, 0.7)

	h.act(Confirm(tok))
	assert.Equal(t, 0, h.ledger.calls)
	last := h.chat.last()
	assert.Contains(t, last.Text, "confiança média (2)")
	assert.Equal(t, ForceConfirm(tok), last.Buttons[0][0].Action)
	assert.Equal(t, Edit(tok), last.Buttons[1][0].Action)

	h.act(ForceConfirm(tok))
	assert.Equal(t, 1, h.ledger.calls)
}

func TestConfirm_ForceStillRefusesLowConfidence(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.4)
	h.act(ForceConfirm(tok))
	assert.Equal(t, 0, h.ledger.calls)
}

func TestConfirm_TwiceCommitsOnce(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9)

	h.act(Confirm(tok))
	h.act(Confirm(tok))

	assert.Equal(t, 1, h.ledger.calls)
	assert.Contains(t, h.chat.last().Text, "expirou")
}

func TestConfirm_ConcurrentCommitsOnce(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.act(Confirm(tok))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, h.ledger.calls)
}

func TestConfirm_LedgerFailureLosesBatch(t *testing.T) {
	h := newHarness(t, nil)
	h.ledger.err = &ledger.Error{Status: 502, Message: "bad gateway"}
	tok := h.seed(0.9)

	h.act(Confirm(tok))

	_, ok := h.e.Store().Batches.Get(tok)
	assert.False(t, ok)
	assert.Contains(t, h.chat.last().Text, "Falha ao registrar")
	require.Len(t, h.audit.receipts, 1)
	assert.Equal(t, 1, h.audit.receipts[0].Failed)
	assert.NotEmpty(t, h.audit.receipts[0].Err)
}

func TestConfirm_PartialFailureIsReported(t *testing.T) {
	h := newHarness(t, nil)
	h.ledger.results = []ledger.Result{{OK: true}, {OK: false, Error: "dup"}}
	tok := h.seed(0.9, 0.9)

	h.act(Confirm(tok))
	assert.Contains(t, h.chat.last().Text, "1 aposta(s) registrada(s), 1 com erro")
}

func TestConfirm_EmptyBatch(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.e.open(context.Background(), chatID, ownerID, "", nil)
	h.act(Confirm(tok))
	assert.Equal(t, 0, h.ledger.calls)
	assert.Contains(t, h.chat.last().Text, "Não há apostas")
}

func TestCancel(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9)
	h.act(EditField(tok, 0, 0, slip.FieldOdd))
	require.Equal(t, 1, h.e.Store().Edits.Len())

	h.act(Cancel(tok))

	_, ok := h.e.Store().Batches.Get(tok)
	assert.False(t, ok)
	assert.Equal(t, 0, h.e.Store().Edits.Len())
	assert.Contains(t, h.chat.last().Text, "Lote cancelado")
}

func TestAction_ForeignUserIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9)
	h.e.HandleAction(context.Background(), ActionSignal{ChatID: chatID, UserID: 999, Action: Confirm(tok)})
	assert.Equal(t, 0, h.ledger.calls)
	assert.Contains(t, h.chat.last().Text, "Só quem enviou")
}

func (h *harness) startEdit(t *testing.T, tok string, rev, idx int, f slip.Field) int {
	t.Helper()
	h.act(EditField(tok, rev, idx, f))
	last := h.chat.last()
	require.True(t, last.ForceReply)
	return last.MessageID
}

func TestEdit_RoundTrip(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.5)

	prompt := h.startEdit(t, tok, 0, 0, slip.FieldStake)
	require.True(t, h.reply(prompt, "25,50"))
	it := h.batch(t, tok).Items[0]
	require.True(t, it.Record.Stake.Valid)
	assert.True(t, decimal.RequireFromString("25.50").Equal(it.Record.Stake.Decimal))
	assert.True(t, it.Reviewed)
	assert.Equal(t, 0, h.e.Store().Edits.Len())

	prompt = h.startEdit(t, tok, 0, 0, slip.FieldDate)
	require.True(t, h.reply(prompt, "05/03/2024"))
	assert.Equal(t, "2024-03-05", h.batch(t, tok).Items[0].Record.MatchDate)

	for _, f := range slip.Fields {
		prompt = h.startEdit(t, tok, 0, 0, f)
		require.True(t, h.reply(prompt, "-"))
		assert.Empty(t, h.batch(t, tok).Items[0].Record.Get(f), "field %s", f)
	}
}

func TestEdit_ReplyRerendersReview(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9)
	prompt := h.startEdit(t, tok, 0, 0, slip.FieldEvent)
	h.reply(prompt, "Flamengo x Vasco")

	last := h.chat.last()
	assert.True(t, last.Edited)
	assert.Equal(t, h.batch(t, tok).ReviewMessageID, last.MessageID)
	assert.Contains(t, last.Text, "Flamengo x Vasco")
}

func TestEdit_MultiLineReplyIsAPatch(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.5)
	prompt := h.startEdit(t, tok, 0, 0, slip.FieldOdd)
	h.reply(prompt, "odd: 1,85\ncasa: Bet365\nlixo")

	r := h.batch(t, tok).Items[0].Record
	assert.True(t, decimal.RequireFromString("1.85").Equal(r.Odd.Decimal))
	assert.Equal(t, "bet365", r.Book)
}

func TestEdit_SingleLineReplySetsPickedField(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.5)

	prompt := h.startEdit(t, tok, 0, 0, slip.FieldMarket)
	h.reply(prompt, "Aposta: Flamengo vence")
	r := h.batch(t, tok).Items[0].Record
	assert.Equal(t, "Aposta: Flamengo vence", r.Market)
	assert.False(t, r.Stake.Valid)

	prompt = h.startEdit(t, tok, 0, 0, slip.FieldEvent)
	h.reply(prompt, "Data: Flamengo x Vasco")
	r = h.batch(t, tok).Items[0].Record
	assert.Equal(t, "Data: Flamengo x Vasco", r.Event)
	assert.Equal(t, "2024-03-05", r.MatchDate)
}

func TestEdit_NewEditReplacesOld(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.5)
	old := h.startEdit(t, tok, 0, 0, slip.FieldOdd)
	cur := h.startEdit(t, tok, 0, 0, slip.FieldStake)

	assert.False(t, h.reply(old, "2"), "reply to the superseded prompt is not an edit")
	require.True(t, h.reply(cur, "10"))
	r := h.batch(t, tok).Items[0].Record
	assert.False(t, r.Odd.Valid)
	assert.True(t, decimal.NewFromInt(10).Equal(r.Stake.Decimal))
}

func TestRemove_ShiftsItemsAndStalesOldReferences(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9, 0.9, 0.9)
	prompt := h.startEdit(t, tok, 0, 2, slip.FieldEvent)

	h.act(Remove(tok, 0, 1))
	b := h.batch(t, tok)
	assert.Equal(t, []string{"Jogo 1", "Jogo 3"}, events(b))
	assert.Equal(t, 1, b.Rev)

	require.True(t, h.reply(prompt, "Outro jogo"))
	assert.Contains(t, h.chat.last().Text, "expirou")
	assert.Equal(t, []string{"Jogo 1", "Jogo 3"}, events(h.batch(t, tok)))
	assert.Equal(t, 0, h.e.Store().Edits.Len())

	h.act(Remove(tok, 0, 0))
	assert.Contains(t, h.chat.last().Text, "expirou")
	assert.Len(t, h.batch(t, tok).Items, 2)
}

func TestRemove_ReturnsToFirstPage(t *testing.T) {
	h := newHarness(t, nil)
	cs := make([]float64, 8)
	for i := range cs {
		cs[i] = 0.9
	}
	tok := h.seed(cs...)

	h.act(Page(tok, 1))
	require.Equal(t, 1, h.batch(t, tok).Page)

	h.act(Remove(tok, 0, 7))
	b := h.batch(t, tok)
	assert.Len(t, b.Items, 7)
	assert.Equal(t, 0, b.Page)
	assert.Contains(t, h.chat.last().Text, "Página 1/2")
	assert.Contains(t, h.chat.last().Text, "1. Jogo 1")
}

func TestPage_IsRemembered(t *testing.T) {
	h := newHarness(t, nil)
	cs := make([]float64, 8)
	for i := range cs {
		cs[i] = 0.9
	}
	tok := h.seed(cs...)

	h.act(Page(tok, 1))
	assert.Equal(t, 1, h.batch(t, tok).Page)
	assert.Contains(t, h.chat.last().Text, "Página 2/2")

	h.act(Edit(tok))
	h.act(Back(tok))
	assert.Contains(t, h.chat.last().Text, "Página 2/2")
}

func TestHandleText_TypedSlipOpensBatch(t *testing.T) {
	h := newHarness(t, nil)
	ok := h.e.HandleText(context.Background(), TextSignal{ChatID: chatID, UserID: ownerID, Text: "evento: Flamengo x Vasco\nodd: 1,9\nstake: 50"})
	require.True(t, ok)

	b := h.batch(t, "b1")
	require.Len(t, b.Items, 1)
	assert.Equal(t, 1.0, b.Items[0].Confidence())
	assert.Equal(t, "2024-03-05", b.Items[0].Record.MatchDate)

	assert.False(t, h.e.HandleText(context.Background(), TextSignal{ChatID: chatID, UserID: ownerID, Text: "oi"}))
	assert.False(t, h.e.HandleText(context.Background(), TextSignal{ChatID: chatID, UserID: ownerID, Text: "odd: 2"}))
}

func TestBatchTTL(t *testing.T) {
	h := newHarness(t, nil)
	tok := h.seed(0.9)
	h.clock.Advance(31 * time.Minute)
	h.act(Confirm(tok))
	assert.Equal(t, 0, h.ledger.calls)
	assert.Contains(t, h.chat.last().Text, "expirou")
}
