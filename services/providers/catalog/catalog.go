// Package catalog holds the default provider table and turns it into a
// providers.Registry wired to real adapters.
package catalog

import (
	"fmt"

	"github.com/upb/llm-arena/config"
	"github.com/upb/llm-arena/services/providers"
	"github.com/upb/llm-arena/services/providers/anthropic"
	"github.com/upb/llm-arena/services/providers/cohere"
	"github.com/upb/llm-arena/services/providers/gemini"
	"github.com/upb/llm-arena/services/providers/huggingface"
)

// Kind selects the adapter implementation for a catalog entry.
type Kind string

const (
	KindHuggingFace Kind = "huggingface"
	KindAnthropic   Kind = "anthropic"
	KindCohere      Kind = "cohere"
	KindGemini      Kind = "gemini"
)

// Spec describes one catalog entry.
type Spec struct {
	Name           string   `yaml:"name"`
	Kind           Kind     `yaml:"kind"`
	ModelID        string   `yaml:"model_id"`
	Confidence     float64  `yaml:"confidence"`
	Description    string   `yaml:"description"`
	Specialties    []string `yaml:"specialties"`
	NominalLatency string   `yaml:"avg_response_time"`
}

// Credential returns the credential class the entry depends on.
func (s Spec) Credential() providers.Credential {
	switch s.Kind {
	case KindAnthropic:
		return providers.CredentialAnthropic
	case KindCohere:
		return providers.CredentialCohere
	case KindGemini:
		return providers.CredentialGemini
	default:
		return providers.CredentialHuggingFace
	}
}

func (s Spec) family() providers.Family {
	if s.Kind == KindHuggingFace {
		return providers.FamilyInference
	}
	return providers.FamilySDK
}

var defaultSpecs = []Spec{
	{
		Name:           "Cohere-Command",
		Kind:           KindCohere,
		Description:    "Cohere's Command model, excellent for understanding context and generating relevant responses.",
		NominalLatency: "2s",
		Specialties:    []string{"Text Generation", "Analysis", "Classification"},
	},
	{
		Name:           "Claude-2",
		Kind:           KindAnthropic,
		Description:    "Anthropic's Claude-2 model, known for thoughtful and nuanced responses.",
		NominalLatency: "3s",
		Specialties:    []string{"Analysis", "Writing", "Problem Solving"},
	},
	{
		Name:           "FLAN-T5",
		Kind:           KindHuggingFace,
		ModelID:        "google/flan-t5-base",
		Description:    "Google's FLAN-T5-Base model, great for various text generation tasks.",
		NominalLatency: "2s",
		Specialties:    []string{"Question Answering", "Text Generation", "Translation"},
	},
	{
		Name:           "GPT-2",
		Kind:           KindHuggingFace,
		ModelID:        "gpt2",
		Description:    "OpenAI's GPT-2 model (free version), good for creative writing.",
		NominalLatency: "2s",
		Specialties:    []string{"Creative Writing", "Text Completion", "Story Generation"},
	},
	{
		Name:           "BLOOM",
		Kind:           KindHuggingFace,
		ModelID:        "bigscience/bloom",
		Description:    "BigScience's BLOOM model, multilingual text generation.",
		NominalLatency: "3s",
		Specialties:    []string{"Multilingual Generation", "Code Generation", "Analysis"},
	},
	{
		Name:           "DialoGPT",
		Kind:           KindHuggingFace,
		ModelID:        "microsoft/DialoGPT-medium",
		Description:    "Microsoft's DialoGPT, specialized in conversational responses.",
		NominalLatency: "2s",
		Specialties:    []string{"Conversation", "Chat", "Response Generation"},
	},
	{
		Name:           "OPT",
		Kind:           KindHuggingFace,
		ModelID:        "facebook/opt-1.3b",
		Description:    "Meta's OPT model, alternative to GPT-3 with similar capabilities.",
		NominalLatency: "2s",
		Specialties:    []string{"Text Generation", "Analysis", "Question Answering"},
	},
	{
		Name:           "BART",
		Kind:           KindHuggingFace,
		ModelID:        "facebook/bart-large",
		Description:    "Facebook's BART model, excellent for summarization and generation.",
		NominalLatency: "2s",
		Specialties:    []string{"Summarization", "Text Generation", "Translation"},
	},
	{
		Name:           "T0pp",
		Kind:           KindHuggingFace,
		ModelID:        "bigscience/T0pp",
		Description:    "Hugging Face's T0++ model, trained on diverse tasks.",
		NominalLatency: "3s",
		Specialties:    []string{"Zero-shot Learning", "Task Understanding", "General Knowledge"},
	},
	{
		Name:           "GPT-Neo",
		Kind:           KindHuggingFace,
		ModelID:        "EleutherAI/gpt-neo-1.3B",
		Description:    "EleutherAI's GPT-Neo, open-source alternative to GPT-3.",
		NominalLatency: "3s",
		Specialties:    []string{"Text Generation", "Code Completion", "Analysis"},
	},
	{
		Name:           "Dolly",
		Kind:           KindHuggingFace,
		ModelID:        "databricks/dolly-v2-3b",
		Description:    "Databricks' Dolly model, instruction-following specialist.",
		NominalLatency: "2s",
		Specialties:    []string{"Instruction Following", "Task Completion", "Explanation"},
	},
	{
		Name:           "Falcon",
		Kind:           KindHuggingFace,
		ModelID:        "tiiuae/falcon-7b",
		Description:    "TII's Falcon model, powerful open-source language model.",
		NominalLatency: "3s",
		Specialties:    []string{"Text Generation", "Analysis", "Problem Solving"},
	},
	{
		Name:           "MPT",
		Kind:           KindHuggingFace,
		ModelID:        "mosaicml/mpt-7b",
		Description:    "MosaicML's MPT model, efficient and powerful language model.",
		NominalLatency: "2s",
		Specialties:    []string{"Text Generation", "Chat", "Analysis"},
	},
	{
		Name:           "Pythia",
		Kind:           KindHuggingFace,
		ModelID:        "EleutherAI/pythia-1.4b",
		Description:    "EleutherAI's Pythia model, trained on code and text.",
		NominalLatency: "2s",
		Specialties:    []string{"Code Generation", "Technical Writing", "Analysis"},
	},
	{
		Name:           "Qwen3",
		Kind:           KindHuggingFace,
		ModelID:        "Qwen/Qwen1.5-7B-Chat",
		Confidence:     0.9,
		Description:    "Qwen3 8B model, excellent for reasoning, coding, and multilingual tasks.",
		NominalLatency: "2s",
		Specialties:    []string{"Reasoning", "Coding", "Multilingual Support"},
	},
	{
		Name:           "DeepSeek R1",
		Kind:           KindHuggingFace,
		ModelID:        "deepseek-ai/deepseek-coder-6.7b-base",
		Confidence:     0.95,
		Description:    "DeepSeek R1 is a powerful open-source model with MIT license, excellent for complex reasoning and coding tasks.",
		NominalLatency: "2s",
		Specialties:    []string{"Complex Reasoning", "Coding", "Technical Analysis"},
	},
	{
		Name:           "Qwen3 30B",
		Kind:           KindHuggingFace,
		ModelID:        "Qwen/Qwen1.5-14B-Chat",
		Confidence:     0.92,
		Description:    "Qwen3 30B A3B is a large model with 30.5B parameters, excellent for mathematics, coding, and creative tasks.",
		NominalLatency: "3s",
		Specialties:    []string{"Mathematics", "Advanced Coding", "Creative Writing"},
	},
	{
		Name:           "Gemini-Pro",
		Kind:           KindGemini,
		Description:    "Google's Gemini model, strong at reasoning over long and mixed inputs.",
		NominalLatency: "2s",
		Specialties:    []string{"Reasoning", "Summarization", "Code Generation"},
	},
}

// Defaults returns a copy of the built-in catalog in display order.
func Defaults() []Spec {
	out := make([]Spec, len(defaultSpecs))
	for i, s := range defaultSpecs {
		s.Specialties = append([]string(nil), s.Specialties...)
		out[i] = s
	}
	return out
}

// Merge overlays extra onto base: entries with a known name replace the
// original in place, new names are appended.
func Merge(base, extra []Spec) []Spec {
	out := append([]Spec(nil), base...)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Name] = i
	}
	for _, s := range extra {
		if i, ok := index[s.Name]; ok {
			out[i] = s
			continue
		}
		index[s.Name] = len(out)
		out = append(out, s)
	}
	return out
}

// Credentials collects the configured secrets per class.
func Credentials(cfg *config.Config) providers.Credentials {
	return providers.Credentials{
		providers.CredentialHuggingFace: cfg.Providers.HuggingFace.APIKey,
		providers.CredentialAnthropic:   cfg.Providers.Anthropic.APIKey,
		providers.CredentialCohere:      cfg.Providers.Cohere.APIKey,
		providers.CredentialGemini:      cfg.Providers.Gemini.APIKey,
	}
}

// Build loads the optional catalog file and constructs the registry.
func Build(cfg *config.Config) (*providers.Registry, providers.Credentials, error) {
	specs := Defaults()
	if cfg.Providers.CatalogFile != "" {
		extra, err := LoadFile(cfg.Providers.CatalogFile)
		if err != nil {
			return nil, nil, err
		}
		specs = Merge(specs, extra)
	}

	reg, err := NewRegistry(cfg, specs)
	if err != nil {
		return nil, nil, err
	}
	return reg, Credentials(cfg), nil
}

// NewRegistry builds adapters for specs using the provider settings in cfg.
func NewRegistry(cfg *config.Config, specs []Spec) (*providers.Registry, error) {
	params := providers.GenerationParameters{
		MaxTokens:   cfg.Generation.MaxTokens,
		Temperature: cfg.Generation.Temperature,
	}

	builder := providers.NewRegistryBuilder()
	for _, s := range specs {
		adapter, err := newAdapter(cfg, params, s)
		if err != nil {
			return nil, err
		}
		builder.With(providers.Descriptor{
			Name:           s.Name,
			Description:    s.Description,
			Specialties:    s.Specialties,
			NominalLatency: s.NominalLatency,
			MaxTokens:      params.MaxTokens,
			Credential:     s.Credential(),
			Family:         s.family(),
		}, adapter)
	}
	return builder.Build()
}

func newAdapter(cfg *config.Config, params providers.GenerationParameters, s Spec) (providers.Adapter, error) {
	pc := providers.DefaultProviderConfig()
	pc.Timeout = cfg.Generation.RequestTimeout
	pc.Params = params

	p := cfg.Providers
	switch s.Kind {
	case KindHuggingFace:
		if s.ModelID == "" {
			return nil, fmt.Errorf("catalog: %s: model_id is required", s.Name)
		}
		pc.APIKey = p.HuggingFace.APIKey
		pc.BaseURL = p.HuggingFace.BaseURL
		return huggingface.NewAdapter(s.Name, s.ModelID, s.Confidence, pc), nil
	case KindAnthropic:
		pc.APIKey = p.Anthropic.APIKey
		pc.BaseURL = p.Anthropic.BaseURL
		return anthropic.NewAdapter(s.Name, firstNonEmpty(s.ModelID, p.Anthropic.Model), p.Anthropic.APIVersion, pc), nil
	case KindCohere:
		pc.APIKey = p.Cohere.APIKey
		pc.BaseURL = p.Cohere.BaseURL
		return cohere.NewAdapter(s.Name, firstNonEmpty(s.ModelID, p.Cohere.Model), pc), nil
	case KindGemini:
		pc.APIKey = p.Gemini.APIKey
		return gemini.NewAdapter(s.Name, firstNonEmpty(s.ModelID, p.Gemini.Model), pc), nil
	default:
		return nil, fmt.Errorf("catalog: %s: unknown kind %q", s.Name, s.Kind)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
