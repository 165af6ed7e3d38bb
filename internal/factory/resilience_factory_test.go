package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/email-onebox/internal/config"
	"github.com/mikey/email-onebox/internal/core"
)

type answeringClassifier struct {
	answer string
	calls  int
}

func (c *answeringClassifier) Classify(context.Context, string) (string, error) {
	c.calls++
	return c.answer, nil
}

func newResilienceFactory() *ResilienceFactory {
	v := config.NewEmptyViper()
	v.Set("resilience.max_retries", 1)
	v.Set("resilience.initial_interval", "1ms")
	v.Set("resilience.max_interval", "2ms")
	v.Set("resilience.breaker_failures", 1)
	v.Set("resilience.breaker_timeout", "1h")
	return NewResilienceFactory(config.NewFromViper(v), zap.NewNop())
}

func TestClassifierGuard_OffTaxonomyLabelDoesNotIsolateSiblings(t *testing.T) {
	f := newResilienceFactory()
	guard := f.CreateClassifierGuard()
	opts := core.ClassificationOptions{StrictLabels: true}

	vague := &answeringClassifier{answer: "Maybe later"}
	svc := core.NewClassificationService(vague, nil, nil, guard, zap.NewNop(), opts)
	for i := 0; i < 3; i++ {
		_, err := svc.ClassifyText(context.Background(), "Let me think about it")
		assert.ErrorIs(t, err, core.ErrInvalidLabel)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, 6, vague.calls, "invalid labels are still retried")

	healthy := &answeringClassifier{answer: "Interested"}
	svc = core.NewClassificationService(healthy, nil, nil, guard, zap.NewNop(), opts)
	label, err := svc.ClassifyText(context.Background(), "Can we schedule a demo?")
	require.NoError(t, err)
	assert.Equal(t, core.LabelInterested, label)
}

func TestGuards_HaveIndependentBreakers(t *testing.T) {
	f := newResilienceFactory()
	classify := f.CreateClassifierGuard()
	reply := f.CreateGuard("reply")

	down := errors.New("provider down")
	_ = reply.Do(context.Background(), "embed", func(context.Context) error { return down })
	err := reply.Do(context.Background(), "embed", func(context.Context) error { return nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)

	assert.NoError(t, classify.Do(context.Background(), "classify", func(context.Context) error { return nil }))
}
