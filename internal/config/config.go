// Package config resolves spec.md §6.5's named templates
// (standard|emergency|exam_week|flexible|strict) into a concrete
// orchestrator.Config, the way the teacher's loader package resolves a
// course's base Distribution merged with its per-plan PlanLocation
// override: start from an embedded default, then merge in whatever the
// operator supplied via file/env/flag.
package config

import (
	"fmt"
	"time"

	"github.com/imdario/mergo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"examtt/internal/gafilter"
	"examtt/internal/metrics"
	"examtt/internal/orchestrator"
)

// Template names spec.md §6.5's --template values.
type Template string

const (
	TemplateStandard  Template = "standard"
	TemplateEmergency Template = "emergency"
	TemplateExamWeek  Template = "exam_week"
	TemplateFlexible  Template = "flexible"
	TemplateStrict    Template = "strict"
)

// ErrUnknownTemplate is a configuration error (CLI exit code 1).
type ErrUnknownTemplate struct{ Template string }

func (e *ErrUnknownTemplate) Error() string {
	return fmt.Sprintf("config: unknown template %q", e.Template)
}

// Session holds everything schedule-session needs beyond the dataset
// itself, mirroring spec.md §6.5's flag surface.
type Session struct {
	SessionID          string
	Template           Template
	SolverTimeSeconds  float64
	Seed               int64
	RetentionThreshold float64
	LimitData          bool
	LogLevel           string
	Orchestrator       orchestrator.Config
}

// DefaultsFor returns the named template's base orchestrator.Config.
// Each template trades phase-1/phase-2 time budgets and GA effort against
// how urgently the session needs a result (spec.md §6.5's named profiles
// carry no numeric defaults of their own; these follow the time-limit and
// weight defaults spec.md §4.6/§4.7 already name, scaled per profile).
func DefaultsFor(t Template) (orchestrator.Config, error) {
	base := orchestrator.DefaultConfig()
	switch t {
	case TemplateStandard:
		return base, nil
	case TemplateEmergency:
		base.TimeLimit1 = 60 * time.Second
		base.TimeLimit2 = 10 * time.Second
		base.GAEnabled = false
		return base, nil
	case TemplateExamWeek:
		base.TimeLimit1 = 600 * time.Second
		base.TimeLimit2 = 60 * time.Second
		base.GAGenerations = 20
		base.GAPoolSize = 20
		return base, nil
	case TemplateFlexible:
		base.FilterConfig.RetentionThreshold = 0.6
		base.VariableCeiling = base.VariableCeiling * 2
		return base, nil
	case TemplateStrict:
		base.FilterConfig.RetentionThreshold = 0.2
		base.Weights = metrics.Weights{Completion: 0.4, Feasibility: 0.6}
		return base, nil
	default:
		return orchestrator.Config{}, &ErrUnknownTemplate{Template: string(t)}
	}
}

// Load resolves a Session from the named template plus an optional config
// file/environment layer (via viper) and explicit CLI flags (via pflag),
// in that precedence order: flags > env > file > template default.
func Load(flags *pflag.FlagSet, configFile string) (*Session, error) {
	v := viper.New()
	v.SetEnvPrefix("EXAMTT")
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	templateName := v.GetString("template")
	if templateName == "" {
		templateName = string(TemplateStandard)
	}
	base, err := DefaultsFor(Template(templateName))
	if err != nil {
		return nil, err
	}

	overrides := orchestrator.Config{
		TimeLimit1:   nonZeroDuration(time.Duration(v.GetFloat64("solver-time") * float64(time.Second))),
		Seed:         v.GetInt64("seed"),
		FilterConfig: gafilter.Config{RetentionThreshold: v.GetFloat64("retention-threshold")},
	}
	if err := mergo.Merge(&base, overrides, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merging overrides: %w", err)
	}

	sess := &Session{
		SessionID:          v.GetString("session-id"),
		Template:           Template(templateName),
		SolverTimeSeconds:  v.GetFloat64("solver-time"),
		Seed:               v.GetInt64("seed"),
		RetentionThreshold: v.GetFloat64("retention-threshold"),
		LimitData:          v.GetBool("limit-data"),
		LogLevel:           orDefault(v.GetString("log-level"), "info"),
		Orchestrator:       base,
	}
	if sess.SessionID == "" {
		return nil, fmt.Errorf("config: --session-id is required")
	}
	return sess, nil
}

func nonZeroDuration(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
