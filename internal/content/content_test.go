package content

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSolution(t *testing.T) {
	ok := SourceFunc(func(_ context.Context, topic string) (string, error) {
		return "about " + topic, nil
	})
	assert.Equal(t, "about Go", Solution(context.Background(), ok, "Go"))

	failing := SourceFunc(func(context.Context, string) (string, error) {
		return "", errors.New("quota exceeded")
	})
	assert.Equal(t, "Error: quota exceeded", Solution(context.Background(), failing, "Go"))

	assert.Equal(t, "Error: content source not configured", Solution(context.Background(), Unavailable(), "Go"))
}

func TestNewGeminiSource_RequiresKey(t *testing.T) {
	_, err := NewGeminiSource(context.Background(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**Bold heading:**", "Bold heading:"},
		{"- dash item", "• dash item"},
		{"* star item", "• star item"},
		{"  plain text  ", "plain text"},
		{"a * b", "a • b"},
		{"--- rule", "• rule"},
		{"Example: x = 1", "Example: x = 1"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanLine(tt.in))
		})
	}
}

func TestLines(t *testing.T) {
	text := "Intro:\n\n<b>bold</b> & more\n- first\n   \n* second"
	assert.Equal(t, []string{"Intro:", "bold & more", "• first", "• second"}, Lines(text))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "x < y and \"quoted\"", StripMarkup(`x < y and "quoted"`))
	assert.Equal(t, "hello", StripMarkup(`<script>alert(1)</script><p>hello</p>`))
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))

	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	now = now.Add(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = c.Get(ctx, "forever")
	assert.True(t, ok)
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (c *countingSource) Generate(_ context.Context, topic string) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return "text for " + topic, nil
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{}
	cached := NewCachedSource(src, NewMemoryCache(), time.Hour, "model-a", nil)

	for i := 0; i < 3; i++ {
		text, err := cached.Generate(ctx, "Go")
		require.NoError(t, err)
		assert.Equal(t, "text for Go", text)
	}
	assert.Equal(t, int32(1), src.calls.Load())

	_, err := cached.Generate(ctx, "Rust")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedSource_KeysByNamespace(t *testing.T) {
	a := NewCachedSource(Unavailable(), NewMemoryCache(), 0, "model-a", nil)
	b := NewCachedSource(Unavailable(), NewMemoryCache(), 0, "model-b", nil)

	assert.NotEqual(t, a.Key("Go"), b.Key("Go"))
	assert.Equal(t, a.Key("Go"), a.Key("Go"))
	assert.Contains(t, a.Key("Go"), keyPrefix)
}

func TestCachedSource_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{err: errors.New("boom")}
	cached := NewCachedSource(src, NewMemoryCache(), time.Hour, "m", nil)

	_, err := cached.Generate(ctx, "Go")
	require.Error(t, err)
	_, err = cached.Generate(ctx, "Go")
	require.Error(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("down")
}

func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("down")
}

func TestCachedSource_CacheFailureFallsThrough(t *testing.T) {
	src := &countingSource{}
	cached := NewCachedSource(src, brokenCache{}, time.Hour, "m", nil)

	text, err := cached.Generate(context.Background(), "Go")
	require.NoError(t, err)
	assert.Equal(t, "text for Go", text)
}

func TestCachedSource_Concurrent(t *testing.T) {
	src := &countingSource{}
	cached := NewCachedSource(src, NewMemoryCache(), time.Hour, "m", nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cached.Generate(context.Background(), "Go")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, src.calls.Load(), int32(10))
	assert.GreaterOrEqual(t, src.calls.Load(), int32(1))
}

// gatedSource blocks every call until release is closed and fails if its
// context ends first
type gatedSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
	calls   atomic.Int32
}

func (g *gatedSource) Generate(ctx context.Context, topic string) (string, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-g.release:
		return "text for " + topic, nil
	}
}

func TestCachedSource_CallerCancelDoesNotFailOthers(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	cached := NewCachedSource(src, NewMemoryCache(), time.Hour, "m", nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cached.Generate(ctxA, "Go")
		errA <- err
	}()
	<-src.started

	type result struct {
		text string
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		text, err := cached.Generate(context.Background(), "Go")
		resB <- result{text, err}
	}()

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(src.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "text for Go", b.text)
	assert.Equal(t, int32(1), src.calls.Load(), "second caller shares the first lookup")

	text, err := cached.Generate(context.Background(), "Go")
	require.NoError(t, err)
	assert.Equal(t, "text for Go", text)
	assert.Equal(t, int32(1), src.calls.Load(), "result was cached")
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("BOOKMAKER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOOKMAKER_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr)
	require.NoError(t, err)
	defer c.Close()

	key := keyPrefix + "test"
	require.NoError(t, c.Set(ctx, key, "value", time.Minute))
	val, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	_, ok, err = c.Get(ctx, keyPrefix+"missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
