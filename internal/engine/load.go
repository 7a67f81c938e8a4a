package engine

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/example/gojulius/internal/acmodel"
	"github.com/example/gojulius/internal/config"
	"github.com/example/gojulius/internal/feature"
	"github.com/example/gojulius/internal/lexicon"
	"github.com/example/gojulius/internal/lmmodel"
)

// New loads every model asset named in cfg.Paths and builds the tree
// lexicon, returning a ready-to-use Engine. Grammar mode (DFAGrammar set)
// and N-gram mode are mutually exclusive, matching the original decoder's
// single active language-model kind per run.
func New(cfg config.Config) (*Engine, error) {
	acoustic, err := acmodel.Load(cfg.Paths.AcousticModel)
	if err != nil {
		return nil, fmt.Errorf("engine: load acoustic model: %w", err)
	}
	if cfg.Paths.HMMList != "" {
		if err := acmodel.LoadHMMList(cfg.Paths.HMMList, acoustic); err != nil {
			return nil, fmt.Errorf("engine: load HMM list: %w", err)
		}
	}
	slog.Info("loaded acoustic model", "path", cfg.Paths.AcousticModel, "states", len(acoustic.States))

	dict, err := lmmodel.LoadDictionary(cfg.Paths.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("engine: load dictionary: %w", err)
	}
	slog.Info("loaded dictionary", "path", cfg.Paths.Dictionary, "entries", len(dict.Entries))

	e := &Engine{
		cfg:         cfg,
		acoustic:    acoustic,
		dict:        dict,
		beginWordID: InvalidWordID,
		endWordID:   InvalidWordID,
		spWordID:    InvalidWordID,
	}

	var fwdLMForTree *lmmodel.NGram
	if cfg.Paths.DFAGrammar != "" {
		if err := e.loadGrammar(cfg.Paths.DFAGrammar); err != nil {
			return nil, err
		}
	} else {
		if err := e.loadNgrams(cfg.Paths); err != nil {
			return nil, err
		}
		fwdLMForTree = e.fwdLM
	}

	e.words = lexicon.PrepareWords(dict)
	e.findSentinelWords()

	if err := acmodel.ResolvePseudoPhones(acoustic, neededPhones(e.words, acoustic)); err != nil {
		return nil, fmt.Errorf("engine: resolve cross-word context: %w", err)
	}

	tree, err := lexicon.Build(e.words, acoustic, fwdLMForTree)
	if err != nil {
		return nil, fmt.Errorf("engine: build tree lexicon: %w", err)
	}
	e.tree = tree
	e.terminal = lexicon.TerminalNodes(tree)
	slog.Info("built tree lexicon", "words", len(e.words), "nodes", len(tree.Nodes))

	params, err := feature.NewParams(cfg.Audio)
	if err != nil {
		return nil, fmt.Errorf("engine: feature params: %w", err)
	}
	e.params = params

	return e, nil
}

func (e *Engine) loadNgrams(paths config.PathsConfig) error {
	fwd, err := lmmodel.LoadARPA(paths.NgramForward, lmmodel.Forward)
	if err != nil {
		return fmt.Errorf("engine: load forward N-gram: %w", err)
	}
	e.fwdLM = fwd
	slog.Info("loaded forward N-gram", "path", paths.NgramForward, "vocab", fwd.VocabSize())

	if paths.NgramBackward != "" {
		bwd, err := lmmodel.LoadARPA(paths.NgramBackward, lmmodel.Backward)
		if err != nil {
			return fmt.Errorf("engine: load backward N-gram: %w", err)
		}
		e.bwdLM = bwd
		slog.Info("loaded backward N-gram", "path", paths.NgramBackward, "vocab", bwd.VocabSize())
	} else {
		// No dedicated reverse-trained model supplied: pass 2 rescores
		// with the same forward model pass 1 used, losing the benefit of
		// a higher-order backward LM but staying functionally correct.
		e.bwdLM = fwd
		slog.Warn("no backward N-gram configured, reusing forward model for pass 2")
	}
	return nil
}

func (e *Engine) loadGrammar(path string) error {
	dfa, err := lmmodel.LoadDFA(path)
	if err != nil {
		return fmt.Errorf("engine: load DFA grammar: %w", err)
	}
	e.dfa = dfa
	slog.Info("loaded DFA grammar", "path", path, "transitions", len(dfa.Transitions))

	e.categories = make([]int, len(e.dict.Entries))
	for i, entry := range e.dict.Entries {
		cat, err := strconv.Atoi(entry.Name)
		if err != nil {
			return fmt.Errorf("engine: grammar mode: dictionary entry %d name %q is not a DFA category id: %w", i, entry.Name, err)
		}
		e.categories[i] = cat
	}
	return nil
}

// findSentinelWords locates the dictionary word ids for "<s>"/"</s>"
// (N-gram mode's sentence markers) and the configured short-pause model,
// leaving InvalidWordID for any that are not declared.
func (e *Engine) findSentinelWords() {
	for id, w := range e.words {
		switch w.Entry.Name {
		case lmmodel.BeginWord:
			e.beginWordID = id
		case lmmodel.EndWord:
			e.endWordID = id
		}
		if e.cfg.Search.SPModel != "" && w.Entry.Name == e.cfg.Search.SPModel {
			e.spWordID = id
		}
	}
}

// neededPhones collects every distinct phone name PrepareWords produced
// that has no logical (or physical) definition yet, the set
// acmodel.ResolvePseudoPhones must synthesize a pseudo-phone HMM for.
func neededPhones(words []lexicon.WordInfo, set *acmodel.Set) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range words {
		for _, p := range w.Phones {
			if seen[p] {
				continue
			}
			seen[p] = true
			if _, ok := set.Logical(p); !ok {
				out = append(out, p)
			}
		}
	}
	return out
}
