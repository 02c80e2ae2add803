package bloom_test

import (
	"fmt"
	"testing"

	"github.com/fwojciec/sitechat/bloom"
	"github.com/stretchr/testify/assert"
)

func TestFilter_TestAndAdd(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(1000, 0.01)

	assert.False(t, f.Test("https://example.com/pricing"))
	assert.False(t, f.TestAndAdd("https://example.com/pricing"))
	assert.True(t, f.TestAndAdd("https://example.com/pricing"))
	assert.True(t, f.Test("https://example.com/pricing"))

	assert.False(t, f.Test("https://example.com/about"))
	assert.False(t, f.TestAndAdd("https://example.com/about"))
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	t.Parallel()

	f := bloom.NewFilter(500, 0.01)
	for i := range 500 {
		f.TestAndAdd(fmt.Sprintf("https://shop.example/products/%d", i))
	}

	for i := range 500 {
		assert.True(t, f.Test(fmt.Sprintf("https://shop.example/products/%d", i)))
	}
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	t.Parallel()

	const (
		urls   = 10000
		fpRate = 0.01
		probes = 10000
	)

	f := bloom.NewFilter(urls, fpRate)
	for i := range urls {
		f.TestAndAdd(fmt.Sprintf("https://example.com/blog/%d", i))
	}

	falsePositives := 0
	for i := range probes {
		if f.Test(fmt.Sprintf("https://example.com/products/%d", i)) {
			falsePositives++
		}
	}

	// Allow twice the configured rate for statistical variance.
	rate := float64(falsePositives) / float64(probes)
	assert.Less(t, rate, 2*fpRate, "false positive rate %f", rate)
}
