package core

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMode = errors.New("invalid reasoning mode")

// ReasoningMode selects the model and its auxiliary capabilities for a turn.
type ReasoningMode string

const (
	ModeFlash ReasoningMode = "flash"
	ModePro   ReasoningMode = "pro"
)

func ParseReasoningMode(s string) (ReasoningMode, error) {
	switch ReasoningMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFlash:
		return ModeFlash, nil
	case ModePro:
		return ModePro, nil
	}
	return "", fmt.Errorf("%w: %q (want %q or %q)", ErrInvalidMode, s, ModeFlash, ModePro)
}

type ModelConfig struct {
	ProModel        string
	FlashModel      string
	ClassifierModel string
	ThinkingBudget  int32
}

// RequestOptions is the mode-keyed part of a completion request.
type RequestOptions struct {
	Model          string
	GoogleSearch   bool
	ThinkingBudget *int32
}

// RequestFor maps a mode to its request options. Pro gets the deep model and a
// thinking budget; anything else gets the fast model with web search. The two
// configurations never mix.
func RequestFor(mode ReasoningMode, cfg ModelConfig) RequestOptions {
	if mode == ModePro {
		budget := cfg.ThinkingBudget
		return RequestOptions{Model: cfg.ProModel, ThinkingBudget: &budget}
	}
	return RequestOptions{Model: cfg.FlashModel, GoogleSearch: true}
}
