// Package corpus loads and validates the framework requirement corpus.
//
// A Corpus is immutable once built: every accessor returns copies, and
// integrity problems (frameworks without topics, topics without requirement
// statements) are rejected at load time rather than discovered while scoring.
package corpus

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"esgalign/internal/domain"
	"esgalign/internal/textutil"
)

//go:embed data/frameworks.yaml
var builtin []byte

type fileFormat struct {
	Frameworks []frameworkRecord `yaml:"frameworks"`
}

type frameworkRecord struct {
	Code          string        `yaml:"code"`
	Name          string        `yaml:"name"`
	Color         string        `yaml:"color"`
	Jurisdictions []string      `yaml:"jurisdictions"`
	Topics        []topicRecord `yaml:"topics"`
}

type topicRecord struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Requirements []string `yaml:"requirements"`
}

// Corpus is a validated, ordered set of frameworks.
type Corpus struct {
	frameworks  []domain.Framework
	index       map[string]int
	fingerprint string
}

// Default returns the built-in corpus.
func Default() (*Corpus, error) {
	c, err := Parse(strings.NewReader(string(builtin)))
	if err != nil {
		return nil, fmt.Errorf("corpus: built-in: %w", err)
	}
	return c, nil
}

// Load reads a corpus YAML file. An empty path yields the built-in corpus.
func Load(path string) (*Corpus, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %q: %w", path, err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("corpus: %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes a corpus from YAML and validates it with New; any invalid
// framework rejects the whole corpus.
func Parse(r io.Reader) (*Corpus, error) {
	var file fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	frameworks := make([]domain.Framework, 0, len(file.Frameworks))
	for _, fr := range file.Frameworks {
		fw := domain.Framework{
			Code:          strings.TrimSpace(fr.Code),
			Name:          strings.TrimSpace(fr.Name),
			Color:         fr.Color,
			Jurisdictions: fr.Jurisdictions,
		}
		for _, tr := range fr.Topics {
			name := strings.TrimSpace(tr.Name)
			id := strings.TrimSpace(tr.ID)
			if name == "" {
				name = id
			}
			if id == "" {
				id = strings.ReplaceAll(name, " ", "")
			}
			fw.Topics = append(fw.Topics, domain.Topic{ID: id, Name: name, Requirements: tr.Requirements})
		}
		frameworks = append(frameworks, fw)
	}
	return New(frameworks)
}

// New validates frameworks and builds a corpus from a deep copy of them.
// Validation is all or nothing: a single framework with an integrity
// problem rejects the whole load, and the returned error joins one
// *domain.CorpusError per problem found. No partial corpus is returned.
func New(frameworks []domain.Framework) (*Corpus, error) {
	if len(frameworks) == 0 {
		return nil, &domain.CorpusError{Framework: "(corpus)", Reason: "no frameworks"}
	}
	var errs []error
	c := &Corpus{index: make(map[string]int, len(frameworks))}
	for _, fw := range frameworks {
		if err := validateFramework(fw); err != nil {
			errs = append(errs, err)
			continue
		}
		key := strings.ToLower(fw.Code)
		if _, dup := c.index[key]; dup {
			errs = append(errs, &domain.CorpusError{Framework: fw.Code, Reason: "duplicate framework code"})
			continue
		}
		c.index[key] = len(c.frameworks)
		c.frameworks = append(c.frameworks, cloneFramework(fw))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	c.fingerprint = fingerprint(c.frameworks)
	return c, nil
}

func validateFramework(fw domain.Framework) error {
	if fw.Code == "" {
		return &domain.CorpusError{Framework: "(unnamed)", Reason: "framework code is empty"}
	}
	if strings.ContainsAny(fw.Code, " \t\n") {
		return &domain.CorpusError{Framework: fw.Code, Reason: "framework code contains whitespace"}
	}
	if len(fw.Topics) == 0 {
		return &domain.CorpusError{Framework: fw.Code, Reason: "no topics"}
	}
	var errs []error
	seen := make(map[string]struct{}, len(fw.Topics))
	for _, t := range fw.Topics {
		if t.ID == "" {
			errs = append(errs, &domain.CorpusError{Framework: fw.Code, Topic: "(unnamed)", Reason: "topic has no id or name"})
			continue
		}
		if _, dup := seen[t.ID]; dup {
			errs = append(errs, &domain.CorpusError{Framework: fw.Code, Topic: t.ID, Reason: "duplicate topic"})
			continue
		}
		seen[t.ID] = struct{}{}
		if len(t.Requirements) == 0 {
			errs = append(errs, &domain.CorpusError{Framework: fw.Code, Topic: t.ID, Reason: "no requirement statements"})
			continue
		}
		for i, req := range t.Requirements {
			if textutil.IsBlank(req) {
				errs = append(errs, &domain.CorpusError{Framework: fw.Code, Topic: t.ID, Reason: fmt.Sprintf("requirement %d is blank", i)})
			}
		}
	}
	return errors.Join(errs...)
}

// Frameworks returns all frameworks in canonical order.
func (c *Corpus) Frameworks() []domain.Framework {
	out := make([]domain.Framework, len(c.frameworks))
	for i, fw := range c.frameworks {
		out[i] = cloneFramework(fw)
	}
	return out
}

// Codes returns the framework codes in canonical order.
func (c *Corpus) Codes() []string {
	out := make([]string, len(c.frameworks))
	for i, fw := range c.frameworks {
		out[i] = fw.Code
	}
	return out
}

// Len is the number of frameworks.
func (c *Corpus) Len() int { return len(c.frameworks) }

// Lookup finds a framework by code, case-insensitively.
func (c *Corpus) Lookup(code string) (domain.Framework, bool) {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return domain.Framework{}, false
	}
	return cloneFramework(c.frameworks[i]), true
}

// Position returns the canonical position of code, or -1.
func (c *Corpus) Position(code string) int {
	i, ok := c.index[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return -1
	}
	return i
}

// Resolve maps a selection of codes onto frameworks in selection order,
// dropping duplicates. An empty selection or any unknown code fails with a
// *domain.SelectionError.
func (c *Corpus) Resolve(codes []string) ([]domain.Framework, error) {
	if len(codes) == 0 {
		return nil, &domain.SelectionError{}
	}
	var (
		out     []domain.Framework
		unknown []string
		seen    = make(map[int]struct{}, len(codes))
	)
	for _, code := range codes {
		i := c.Position(code)
		if i < 0 {
			unknown = append(unknown, code)
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, cloneFramework(c.frameworks[i]))
	}
	if len(unknown) > 0 {
		return nil, &domain.SelectionError{Unknown: unknown}
	}
	return out, nil
}

// Fingerprint identifies the corpus content. It changes whenever any code,
// topic or requirement text changes.
func (c *Corpus) Fingerprint() string { return c.fingerprint }

// RequirementTexts returns every requirement statement of the given
// frameworks, in canonical order, duplicates included.
func RequirementTexts(frameworks []domain.Framework) []string {
	var out []string
	for _, fw := range frameworks {
		for _, t := range fw.Topics {
			out = append(out, t.Requirements...)
		}
	}
	return out
}

func cloneFramework(fw domain.Framework) domain.Framework {
	out := fw
	out.Jurisdictions = append([]string(nil), fw.Jurisdictions...)
	out.Topics = make([]domain.Topic, len(fw.Topics))
	for i, t := range fw.Topics {
		out.Topics[i] = domain.Topic{ID: t.ID, Name: t.Name, Requirements: append([]string(nil), t.Requirements...)}
	}
	return out
}

func fingerprint(frameworks []domain.Framework) string {
	h := sha256.New()
	for _, fw := range frameworks {
		fmt.Fprintf(h, "F\x00%s\x00", fw.Code)
		for _, t := range fw.Topics {
			fmt.Fprintf(h, "T\x00%s\x00", t.ID)
			for _, r := range t.Requirements {
				fmt.Fprintf(h, "R\x00%s\x00", r)
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
