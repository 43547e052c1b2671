package training

import (
	"github.com/nikhilbhutani/voiceassistant/internal/config"
	"github.com/nikhilbhutani/voiceassistant/internal/nlp/intent"
)

// ModelConfig builds the classifier hyperparameters from the environment
// settings. Zero values keep the package defaults.
func ModelConfig(cfg config.IntentConfig) intent.Config {
	mc := intent.DefaultConfig()
	if cfg.MaxFeatures > 0 {
		mc.Features.MaxFeatures = cfg.MaxFeatures
	}
	if cfg.C > 0 {
		mc.C = cfg.C
	}
	if cfg.MaxIter > 0 {
		mc.MaxIter = cfg.MaxIter
	}
	if cfg.Seed != 0 {
		mc.Seed = cfg.Seed
	}
	return mc
}

// DefaultJob is the job the worker and CLI run when nothing overrides it.
func DefaultJob(cfg config.IntentConfig) Job {
	return Job{
		DatasetPath:        cfg.DatasetPath,
		ModelPath:          cfg.ModelPath,
		ValidationFraction: cfg.ValidationFraction,
	}
}
