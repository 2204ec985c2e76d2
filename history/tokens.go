// Copyright (c) LumenFlow Authors.
// Licensed under the MIT License.

package history

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenCounter estimates the token cost of a piece of text.
type TokenCounter interface {
	CountTokens(text string) (int, error)
}

// modelEncodings maps model names to their tiktoken encodings.
var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4o-mini":   "o200k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// TiktokenCounter counts tokens with the model's tiktoken encoding. The
// encoding is initialized lazily since it may download data on first use.
type TiktokenCounter struct {
	encoding string
	enc      *tiktoken.Tiktoken
	once     sync.Once
	initErr  error
}

// NewTiktokenCounter creates a counter for the given model. Unknown models
// fall back to cl100k_base.
func NewTiktokenCounter(model string) *TiktokenCounter {
	encoding, ok := modelEncodings[model]
	if !ok {
		for prefix, enc := range modelEncodings {
			if len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				encoding, ok = enc, true
				break
			}
		}
	}
	if !ok {
		encoding = "cl100k_base"
	}
	return &TiktokenCounter{encoding: encoding}
}

func (c *TiktokenCounter) init() error {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.initErr = fmt.Errorf("init tiktoken encoding %s: %w", c.encoding, err)
			return
		}
		c.enc = enc
	})
	return c.initErr
}

// CountTokens returns the token count of text.
func (c *TiktokenCounter) CountTokens(text string) (int, error) {
	if err := c.init(); err != nil {
		return 0, err
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}

// EstimateCounter approximates tokens as len(text)/4, never failing. Used
// standalone in tests and as the fallback behind FallbackCounter.
type EstimateCounter struct{}

// CountTokens returns the character-based estimate.
func (EstimateCounter) CountTokens(text string) (int, error) {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n, nil
}

// FallbackCounter wraps a primary counter and falls back to the character
// estimate when it fails, logging a warning.
type FallbackCounter struct {
	inner  TokenCounter
	logger *zap.Logger
}

// NewFallbackCounter creates the wrapping counter.
func NewFallbackCounter(inner TokenCounter, logger *zap.Logger) *FallbackCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackCounter{inner: inner, logger: logger}
}

// CountTokens never fails.
func (c *FallbackCounter) CountTokens(text string) (int, error) {
	n, err := c.inner.CountTokens(text)
	if err != nil {
		c.logger.Warn("token count failed, falling back to estimate", zap.Error(err))
		return EstimateCounter{}.CountTokens(text)
	}
	return n, nil
}
