package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"studyprep/internal/store"
	"studyprep/internal/study"
)

const generateUsage = `Usage:
  studyprep generate --config <path> <operation> <input...>

Operations:
  flashcards <topic>          Five general flashcards
  english-cards <topic>       Five English vocabulary flashcards
  lesson <level>              English lesson for a CEFR level
  lab <subject>               Five practice questions (--difficulty)
  simulado [subject...]       Ten-question mock exam
  career <position>           Career guide for a position
  explain <topic>             Short topic explanation (--subject)

Flags:
  --config     string   Path to YAML configuration file (required)
  --difficulty string   Difficulty for lab questions (default "Médio")
  --subject    string   Subject context for explain`

func generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, generateUsage)
	}

	var cfgPath, difficulty, subject string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&difficulty, "difficulty", "Médio", "difficulty for lab questions")
	fs.StringVar(&subject, "subject", "", "subject context for explain")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse generate flags: %w", err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("generate requires an operation\n\n%s", generateUsage)
	}

	cfg, err := loadConfig(cfgPath, 0)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	ai, err := newAIStack(ctx, cfg)
	if err != nil {
		return err
	}
	svc := study.NewService(ai.router, ai.guard, store.NewMemory())

	out, err := runOperation(ctx, svc, fs.Arg(0), fs.Args()[1:], difficulty, subject)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, out)
}

func runOperation(ctx context.Context, svc *study.Service, op string, rest []string, difficulty, subject string) (any, error) {
	input := strings.TrimSpace(strings.Join(rest, " "))
	needInput := func() error {
		if input == "" {
			return fmt.Errorf("operation %q requires an input argument", op)
		}
		return nil
	}

	switch op {
	case "flashcards", "english-cards":
		if err := needInput(); err != nil {
			return nil, err
		}
		kind := study.FlashcardsGeneral
		if op == "english-cards" {
			kind = study.FlashcardsEnglish
		}
		return svc.Flashcards(ctx, input, kind), nil
	case "lesson":
		return svc.EnglishLesson(ctx, input), nil
	case "lab":
		if err := needInput(); err != nil {
			return nil, err
		}
		return svc.LabQuestions(ctx, input, difficulty), nil
	case "simulado":
		return svc.Simulado(ctx, rest), nil
	case "career":
		if err := needInput(); err != nil {
			return nil, err
		}
		return svc.CareerGuide(ctx, input), nil
	case "explain":
		if err := needInput(); err != nil {
			return nil, err
		}
		return map[string]string{"explanation": svc.ExplainTopic(ctx, input, subject)}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q\n\n%s", op, generateUsage)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
