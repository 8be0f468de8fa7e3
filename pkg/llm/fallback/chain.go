// Package fallback chains providers: the next one is tried only when the
// previous one returned an error. A slow success is never abandoned.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ba-assistant-be/pkg/llm"
)

// FailureHook observes a provider failure before the next one is tried
type FailureHook func(provider string, err error)

type Chain struct {
	providers []llm.LLMProvider
	onFailure FailureHook
}

var _ llm.LLMProvider = (*Chain)(nil)

func NewChain(onFailure FailureHook, providers ...llm.LLMProvider) *Chain {
	return &Chain{providers: providers, onFailure: onFailure}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, ">")
}

func (c *Chain) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if len(c.providers) == 0 {
		return "", errors.New("no llm providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		out, err := p.Chat(ctx, history, options...)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if c.onFailure != nil {
			c.onFailure(p.Name(), err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

func (c *Chain) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return c.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
