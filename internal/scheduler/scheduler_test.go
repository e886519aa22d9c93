package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sharpline/internal/models"
	"github.com/yourusername/sharpline/internal/source"
)

type fakeGames struct {
	starting []*models.Game
}

func (f *fakeGames) Upsert(_ context.Context, g *models.Game) (*models.Game, error) { return g, nil }
func (f *fakeGames) GetByID(context.Context, uuid.UUID) (*models.Game, error) {
	return nil, models.ErrNotFound
}
func (f *fakeGames) GetByNaturalKey(context.Context, string, string, string) (*models.Game, error) {
	return nil, models.ErrNotFound
}
func (f *fakeGames) GetByDateEastern(context.Context, string) ([]*models.Game, error) {
	return nil, nil
}
func (f *fakeGames) GetStartingWithin(context.Context, time.Time, time.Time) ([]*models.Game, error) {
	return f.starting, nil
}
func (f *fakeGames) GetUnresolvedBefore(context.Context, time.Time) ([]*models.Game, error) {
	return nil, nil
}

type fakeTuner struct {
	runs int
}

func (f *fakeTuner) Run(context.Context) ([]*models.TuningTransition, error) {
	f.runs++
	return nil, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestLiveProtectionDrivesQuietPeriod(t *testing.T) {
	games := &fakeGames{}
	s := &Scheduler{
		games:  games,
		quiet:  &source.QuietPeriod{},
		logger: quietLogger(),
	}

	s.updateLiveProtection(context.Background())
	assert.False(t, s.quiet.Active())

	games.starting = []*models.Game{{ID: uuid.New()}}
	s.updateLiveProtection(context.Background())
	assert.True(t, s.quiet.Active())

	games.starting = nil
	s.updateLiveProtection(context.Background())
	assert.False(t, s.quiet.Active())
}

func TestTunerJobHonorsQuietPeriod(t *testing.T) {
	tuner := &fakeTuner{}
	quiet := &source.QuietPeriod{}
	s := &Scheduler{
		tuner:  tuner,
		quiet:  quiet,
		logger: quietLogger(),
	}

	quiet.Set(true)
	s.tunerJob()()
	require.Equal(t, 0, tuner.runs)

	quiet.Set(false)
	s.tunerJob()()
	assert.Equal(t, 1, tuner.runs)
}
