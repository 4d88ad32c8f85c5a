package translate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deusflow/newsbrief/internal/completion"
	"github.com/deusflow/newsbrief/internal/retry"
)

func textResponse(content string) *completion.Response {
	return &completion.Response{Choices: []completion.Choice{
		{Message: completion.Message{Role: completion.RoleAssistant, Content: content}},
	}}
}

// recordingClient answers every request with reply and keeps the requests.
type recordingClient struct {
	mu       sync.Mutex
	requests []completion.Request
	reply    func(n int, req completion.Request) (*completion.Response, error)
}

func (c *recordingClient) Complete(_ context.Context, req completion.Request) (*completion.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	n := len(c.requests)
	c.mu.Unlock()
	return c.reply(n, req)
}

func (c *recordingClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func replyWith(content string) *recordingClient {
	return &recordingClient{reply: func(int, completion.Request) (*completion.Response, error) {
		return textResponse(content), nil
	}}
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return nil
}

func newTestTranslator(t *testing.T, client completion.Client, sleeps *sleepRecorder, opts ...Option) *Translator {
	t.Helper()
	if sleeps == nil {
		sleeps = &sleepRecorder{}
	}
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithRetry(retry.Config{MaxAttempts: 3, Delay: time.Second, Sleep: sleeps.sleep}),
	}
	return New(client, append(base, opts...)...)
}

func TestSummarizeAndTranslate_CoercesUnknownSentiment(t *testing.T) {
	client := replyWith(`{"summary":"Bitcoin yeni bir rekor kırdı ve yatırımcılar sevindi.","sentiment":"ecstatic"}`)
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Bitcoin hits new high", "")

	assert.Equal(t, Neutral, got.Sentiment)
	assert.Equal(t, "Bitcoin yeni bir rekor kırdı ve yatırımcılar sevindi.", got.Summary)
}

func TestSummarizeAndTranslate_TotalFailure(t *testing.T) {
	client := &recordingClient{reply: func(n int, _ completion.Request) (*completion.Response, error) {
		return nil, errors.New("401 unauthorized")
	}}
	sleeps := &sleepRecorder{}
	tr := newTestTranslator(t, client, sleeps)

	got := tr.SummarizeAndTranslate(context.Background(), "Bitcoin hits new high", "")

	assert.Equal(t, Result{
		Summary:   "Bitcoin hits new high (Translation unavailable - check API key)",
		Sentiment: Neutral,
	}, got)
	assert.Equal(t, 3, client.calls())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.waits)
}

func TestSummarizeAndTranslate_ScrubsEnglishLeakage(t *testing.T) {
	client := replyWith(`{"summary":"Fiyat yükseldi. The price increased sharply today.","sentiment":"positive"}`)
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Bitcoin rallies", "Bitcoin rallied on Monday.")

	assert.Equal(t, Result{Summary: "Fiyat yükseldi.", Sentiment: Positive}, got)
}

func TestSummarizeAndTranslate_ShortSummaryFallsBackToTitle(t *testing.T) {
	client := replyWith(`{"summary":"Kısa.","sentiment":"negative"}`)
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Exchange hacked", "")

	assert.Equal(t, Result{Summary: "Exchange hacked", Sentiment: Negative}, got)
}

func TestSummarizeAndTranslate_MissingSummaryFallsBackToTitle(t *testing.T) {
	client := replyWith(`{"summary": 42}`)
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Exchange hacked", "")

	assert.Equal(t, Result{Summary: "Exchange hacked", Sentiment: Neutral}, got)
}

func TestSummarizeAndTranslate_ParsesFencedReply(t *testing.T) {
	client := replyWith("```json\n{\"summary\":\"Ethereum ağı başarılı bir güncelleme geçirdi.\",\"sentiment\":\"positive\"}\n```")
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Ethereum upgrade", "")

	assert.Equal(t, Result{Summary: "Ethereum ağı başarılı bir güncelleme geçirdi.", Sentiment: Positive}, got)
}

func TestSummarizeAndTranslate_ParsesObjectInsideProse(t *testing.T) {
	client := replyWith(`Elbette: {"summary":"Solana ağında kesinti yaşandı.","sentiment":"negative"} Umarım yardımcı olur`)
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Solana outage", "")

	assert.Equal(t, Result{Summary: "Solana ağında kesinti yaşandı.", Sentiment: Negative}, got)
}

func TestSummarizeAndTranslate_RawReplyWhenNotJSON(t *testing.T) {
	client := replyWith("Bitcoin bugün yüzde beş değer kazandı.")
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Bitcoin up 5%", "")

	assert.Equal(t, Result{Summary: "Bitcoin bugün yüzde beş değer kazandı.", Sentiment: Neutral}, got)
}

func TestSummarizeAndTranslate_RawReplyDropsCodeFence(t *testing.T) {
	client := replyWith("```\nBitcoin bugün yüzde beş değer kazandı.\n```")
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Bitcoin up 5%", "")

	assert.Equal(t, Result{Summary: "Bitcoin bugün yüzde beş değer kazandı.", Sentiment: Neutral}, got)
}

func TestSummarizeAndTranslate_ShortRawReplyIsFailure(t *testing.T) {
	client := replyWith("tamam")
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "Bitcoin up 5%", "")

	assert.Equal(t, Result{Summary: "Bitcoin up 5% (Translation unavailable - check API key)", Sentiment: Neutral}, got)
	assert.Equal(t, 1, client.calls())
}

func TestSummarizeAndTranslate_RetriesTransientFailure(t *testing.T) {
	client := &recordingClient{reply: func(n int, _ completion.Request) (*completion.Response, error) {
		if n == 1 {
			return nil, errors.New("502 bad gateway")
		}
		return textResponse(`{"summary":"Ripple davayı kazandı ve XRP yükseldi.","sentiment":"positive"}`), nil
	}}
	var retried []int
	sleeps := &sleepRecorder{}
	tr := New(client,
		WithLogger(zaptest.NewLogger(t)),
		WithRetry(retry.Config{
			MaxAttempts: 3,
			Delay:       time.Second,
			Sleep:       sleeps.sleep,
			OnRetry:     func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
		}),
	)

	got := tr.SummarizeAndTranslate(context.Background(), "Ripple wins", "")

	assert.Equal(t, Result{Summary: "Ripple davayı kazandı ve XRP yükseldi.", Sentiment: Positive}, got)
	assert.Equal(t, 2, client.calls())
	assert.Equal(t, []int{1}, retried)
	assert.Equal(t, []time.Duration{time.Second}, sleeps.waits)
}

func TestSummarizeAndTranslate_RequestShape(t *testing.T) {
	client := replyWith(`{"summary":"Bitcoin ETF onayı piyasayı hareketlendirdi.","sentiment":"positive"}`)
	tr := newTestTranslator(t, client, nil, WithModel("gpt-test"))

	tr.SummarizeAndTranslate(context.Background(), "ETF approved", "The SEC approved a spot ETF.")

	require.Equal(t, 1, client.calls())
	req := client.requests[0]
	assert.Equal(t, "gpt-test", req.Model)
	assert.Equal(t, summaryMaxTokens, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.3, float64(*req.Temperature), 1e-6)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, completion.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "JSON")
	assert.Equal(t, completion.User("ETF approved\n\nThe SEC approved a spot ETF."), req.Messages[1])
}

func TestSummarizeAndTranslate_TruncatesLongContent(t *testing.T) {
	client := replyWith(`{"summary":"Uzun bir haberin kısa özeti burada.","sentiment":"neutral"}`)
	tr := newTestTranslator(t, client, nil)

	tr.SummarizeAndTranslate(context.Background(), "Title", strings.Repeat("ş", 3000))

	require.Equal(t, 1, client.calls())
	content := client.requests[0].Messages[1].Content
	assert.Equal(t, maxContentLength+3, utf8.RuneCountInString(content))
	assert.True(t, strings.HasSuffix(content, "..."))
	assert.True(t, strings.HasPrefix(content, "Title\n\n"))
}

func TestSummarizeAndTranslate_EmptyContentShortCircuits(t *testing.T) {
	client := replyWith("unused")
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeAndTranslate(context.Background(), "", "")

	assert.Equal(t, Result{Summary: "", Sentiment: Neutral}, got)
	assert.Equal(t, 0, client.calls())
}

func TestSummarizeInEnglish_DoesNotScrub(t *testing.T) {
	client := replyWith(`{"summary":"Prices rose. The market followed the move.","sentiment":"positive"}`)
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeInEnglish(context.Background(), "Prices rise", "")

	assert.Equal(t, Result{Summary: "Prices rose. The market followed the move.", Sentiment: Positive}, got)
	assert.Contains(t, client.requests[0].Messages[0].Content, "English")
}

func TestSummarizeInEnglish_TotalFailureReturnsTitle(t *testing.T) {
	client := &recordingClient{reply: func(int, completion.Request) (*completion.Response, error) {
		return nil, errors.New("timeout")
	}}
	tr := newTestTranslator(t, client, nil)

	got := tr.SummarizeInEnglish(context.Background(), "Bitcoin hits new high", "")

	assert.Equal(t, Result{Summary: "Bitcoin hits new high", Sentiment: Neutral}, got)
	assert.Equal(t, 3, client.calls())
}

func TestSummarize_Dispatch(t *testing.T) {
	client := replyWith(`{"summary":"Özet metni yeterince uzun.","sentiment":"neutral"}`)
	tr := newTestTranslator(t, client, nil)

	tr.Summarize(context.Background(), English, "a title", "")
	tr.Summarize(context.Background(), Turkish, "a title", "")

	require.Equal(t, 2, client.calls())
	assert.Equal(t, englishSummaryPrompt, client.requests[0].Messages[0].Content)
	assert.Equal(t, turkishSummaryPrompt, client.requests[1].Messages[0].Content)
}

func TestTranslateToTurkish(t *testing.T) {
	t.Run("blank input is returned unchanged", func(t *testing.T) {
		client := replyWith("unused")
		tr := newTestTranslator(t, client, nil)

		assert.Equal(t, "   ", tr.TranslateToTurkish(context.Background(), "   "))
		assert.Equal(t, 0, client.calls())
	})

	t.Run("input too short after cleaning is returned unchanged", func(t *testing.T) {
		client := replyWith("unused")
		tr := newTestTranslator(t, client, nil)

		assert.Equal(t, "<b>hi</b>", tr.TranslateToTurkish(context.Background(), "<b>hi</b>"))
		assert.Equal(t, 0, client.calls())
	})

	t.Run("reply is cleaned", func(t *testing.T) {
		client := replyWith("<p>Bitcoin bugün yükseldi.</p> https://example.com")
		tr := newTestTranslator(t, client, nil)

		got := tr.TranslateToTurkish(context.Background(), "<p>Bitcoin rose today.</p>")

		assert.Equal(t, "Bitcoin bugün yükseldi.", got)
		require.Equal(t, 1, client.calls())
		req := client.requests[0]
		assert.Equal(t, translateMaxTokens, req.MaxTokens)
		assert.Equal(t, completion.User("Bitcoin rose today."), req.Messages[1])
	})

	t.Run("failure returns sanitized input without retrying", func(t *testing.T) {
		client := &recordingClient{reply: func(int, completion.Request) (*completion.Response, error) {
			return nil, errors.New("rate limited")
		}}
		tr := newTestTranslator(t, client, nil)

		got := tr.TranslateToTurkish(context.Background(), "<p>Bitcoin rose today.</p>")

		assert.Equal(t, "Bitcoin rose today.", got)
		assert.Equal(t, 1, client.calls())
	})

	t.Run("empty reply returns sanitized input", func(t *testing.T) {
		client := &recordingClient{reply: func(int, completion.Request) (*completion.Response, error) {
			return &completion.Response{}, nil
		}}
		tr := newTestTranslator(t, client, nil)

		assert.Equal(t, "Bitcoin rose today.", tr.TranslateToTurkish(context.Background(), "Bitcoin rose today."))
	})
}

func TestTranslateBatch_PreservesOrder(t *testing.T) {
	delays := map[string]time.Duration{
		"first headline text":  30 * time.Millisecond,
		"second headline text": 15 * time.Millisecond,
		"third headline text":  0,
	}
	client := &recordingClient{reply: func(_ int, req completion.Request) (*completion.Response, error) {
		in := req.Messages[1].Content
		time.Sleep(delays[in])
		return textResponse("çeviri: " + in), nil
	}}
	tr := newTestTranslator(t, client, nil)

	got := tr.TranslateBatch(context.Background(), []string{"first headline text", "second headline text", "third headline text"})

	assert.Equal(t, []string{
		"çeviri: first headline text",
		"çeviri: second headline text",
		"çeviri: third headline text",
	}, got)
}

func TestTranslateBatch_ShortInputs(t *testing.T) {
	tr := newTestTranslator(t, replyWith("unused"), nil)

	got := tr.TranslateBatch(context.Background(), []string{"a", "b", "c"})

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTranslateBatch_ItemFailureIsAbsorbed(t *testing.T) {
	client := &recordingClient{reply: func(_ int, req completion.Request) (*completion.Response, error) {
		if strings.HasPrefix(req.Messages[1].Content, "broken") {
			return nil, errors.New("boom")
		}
		return textResponse("çevrilmiş haber metni"), nil
	}}
	tr := newTestTranslator(t, client, nil)

	got := tr.TranslateBatch(context.Background(), []string{"working headline", "broken headline"})

	assert.Equal(t, []string{"çevrilmiş haber metni", "broken headline"}, got)
}

func TestTranslateBatch_PanicReturnsInputs(t *testing.T) {
	var calls atomic.Int32
	client := completion.ClientFunc(func(_ context.Context, req completion.Request) (*completion.Response, error) {
		calls.Add(1)
		if strings.HasPrefix(req.Messages[1].Content, "panicking") {
			panic("provider bug")
		}
		return textResponse("çevrilmiş haber metni"), nil
	})
	tr := newTestTranslator(t, client, nil)

	in := []string{"working headline", "panicking headline"}
	got := tr.TranslateBatch(context.Background(), in)

	assert.Equal(t, in, got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTranslateBatch_Empty(t *testing.T) {
	tr := newTestTranslator(t, replyWith("unused"), nil)
	assert.Empty(t, tr.TranslateBatch(context.Background(), nil))
}
