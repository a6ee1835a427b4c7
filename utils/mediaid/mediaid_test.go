package mediaid

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenFormat(t *testing.T) {
	gen := NewGenerator()
	token := gen.NewToken()

	assert.Len(t, token, ulid.EncodedSize)
	assert.Equal(t, strings.ToLower(token), token)

	parsed, err := ulid.ParseStrict(strings.ToUpper(token))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ulid.Time(parsed.Time()), 2*time.Second)
}

func TestNewTokenMonotonicWithinSameInstant(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator()
	gen.now = func() time.Time { return fixed }

	prev := gen.NewToken()
	for i := 0; i < 1000; i++ {
		next := gen.NewToken()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestNewTokenConcurrentUnique(t *testing.T) {
	gen := NewGenerator()
	const workers, perWorker = 16, 500

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]string, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, gen.NewToken())
			}
			mu.Lock()
			for _, token := range local {
				seen[token] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
