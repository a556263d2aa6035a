package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaultsForEachTemplate(t *testing.T) {
	for _, tmpl := range []Template{TemplateStandard, TemplateEmergency, TemplateExamWeek, TemplateFlexible, TemplateStrict} {
		cfg, err := DefaultsFor(tmpl)
		require.NoError(t, err, tmpl)
		require.Greater(t, cfg.TimeLimit1, time.Duration(0), tmpl)
	}
}

func TestDefaultsForRejectsUnknownTemplate(t *testing.T) {
	_, err := DefaultsFor(Template("bogus"))
	require.Error(t, err)
	require.IsType(t, &ErrUnknownTemplate{}, err)
}

func TestEmergencyTemplateDisablesGA(t *testing.T) {
	cfg, err := DefaultsFor(TemplateEmergency)
	require.NoError(t, err)
	require.False(t, cfg.GAEnabled)
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("schedule-session", pflag.ContinueOnError)
	fs.String("session-id", "", "")
	fs.String("template", "", "")
	fs.Float64("solver-time", 0, "")
	fs.Int64("seed", 0, "")
	fs.Float64("retention-threshold", 0, "")
	fs.Bool("limit-data", false, "")
	fs.String("log-level", "", "")
	return fs
}

func TestLoadRequiresSessionID(t *testing.T) {
	fs := flagSet()
	_, err := Load(fs, "")
	require.Error(t, err)
}

func TestLoadAppliesFlagOverridesOntoTemplate(t *testing.T) {
	fs := flagSet()
	require.NoError(t, fs.Set("session-id", "sess-1"))
	require.NoError(t, fs.Set("template", "exam_week"))
	require.NoError(t, fs.Set("solver-time", "45"))
	require.NoError(t, fs.Set("seed", "99"))

	sess, err := Load(fs, "")
	require.NoError(t, err)
	require.Equal(t, TemplateExamWeek, sess.Template)
	require.Equal(t, 45*time.Second, sess.Orchestrator.TimeLimit1)
	require.Equal(t, int64(99), sess.Orchestrator.Seed)
	// exam_week's own GAPoolSize default survives since solver-time only
	// overrides TimeLimit1.
	require.Equal(t, 20, sess.Orchestrator.GAPoolSize)
}
