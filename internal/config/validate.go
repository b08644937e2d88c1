package config

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"voxnote/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateVAD(); err != nil {
		return err
	}
	if err := c.validatePrompts(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	t := &c.Transcription
	err := validation.ValidateStruct(t,
		validation.Field(&t.Model, validation.Required.Error("transcription.model is required (for example mlx-community/whisper-large-v3-turbo)")),
		validation.Field(&t.Language, validation.In(toAny(language.Codes())...).Error("must be one of auto, en, ru")),
		validation.Field(&t.WhisperTimeoutS, validation.Required, validation.Min(1.0)),
	)
	return section("transcription", err)
}

func (c *Config) validateLLM() error {
	l := &c.LLM
	err := validation.ValidateStruct(l,
		validation.Field(&l.Model, validation.Required.Error("llm.model is required (an Ollama model name)")),
		validation.Field(&l.BaseURL, validation.Required),
		validation.Field(&l.ChatTimeoutS, validation.Required, validation.Min(1.0)),
		validation.Field(&l.TokenizeTimeoutS, validation.Required, validation.Min(1.0)),
		validation.Field(&l.MaxRetries, validation.Min(0), validation.Max(10)),
		validation.Field(&l.RetryBackoffS, validation.Min(0.0)),
	)
	return section("llm", err)
}

func (c *Config) validateProcessing() error {
	p := &c.Processing
	err := validation.ValidateStruct(p,
		validation.Field(&p.SupportedFormats, validation.Required.Error("at least one extension is required")),
		validation.Field(&p.FFmpegPrepareTimeoutS, validation.Required, validation.Min(1.0)),
		validation.Field(&p.FFmpegTrimTimeoutS, validation.Required, validation.Min(1.0)),
	)
	return section("processing", err)
}

func (c *Config) validateVAD() error {
	v := &c.VAD
	err := validation.ValidateStruct(v,
		validation.Field(&v.Backend, validation.In("energy", "webrtc")),
		validation.Field(&v.Threshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&v.NegThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&v.MinSilenceDurationMs, validation.Min(0)),
		validation.Field(&v.MinSpeechDurationMs, validation.Min(0)),
		validation.Field(&v.SpeechPadMs, validation.Min(0)),
	)
	if err != nil {
		return section("vad", err)
	}
	if v.NegThreshold > v.Threshold {
		return fmt.Errorf("vad: neg_threshold (%.2f) must not exceed threshold (%.2f)", v.NegThreshold, v.Threshold)
	}
	return nil
}

func (c *Config) validatePrompts() error {
	p := &c.Prompts
	err := validation.ValidateStruct(p,
		validation.Field(&p.SystemPrompt, validation.Required.Error("prompts.system_prompt is required")),
	)
	return section("prompts", err)
}

func (c *Config) validateLogging() error {
	l := &c.Logging
	err := validation.ValidateStruct(l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
	return section("logging", err)
}

func section(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
