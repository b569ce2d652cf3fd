package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	var (
		wg      sync.WaitGroup
		counter [3]int
	)
	for i := 0; i < 50; i++ {
		key := uint64(i % 3)
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			counter[key]++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 17, counter[0])
	assert.Equal(t, 17, counter[1])
	assert.Equal(t, 16, counter[2])
	assert.Zero(t, k.size())
}
