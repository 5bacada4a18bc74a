package catalog

import (
	"errors"
	"fmt"
)

// Question kinds, matching the input shapes the quiz client renders.
const (
	KindSingleChoice = "single_choice"
	KindMultiChoice  = "multi_choice"
	KindScalarSlider = "scalar_slider"
	KindFreeText     = "free_text"
)

// Predicate operators legal in skip rules.
const (
	OpEq  = "eq"
	OpNe  = "ne"
	OpGt  = "gt"
	OpGte = "gte"
	OpLt  = "lt"
	OpLte = "lte"
	OpIn  = "in"
)

var ErrUnknownSection = errors.New("unknown section")

// QuestionSpec is one immutable catalog question.
type QuestionSpec struct {
	ID            string   `yaml:"id" json:"id"`
	Section       string   `yaml:"-" json:"section"`
	Text          string   `yaml:"text" json:"text"`
	Kind          string   `yaml:"kind" json:"kind"`
	Trait         string   `yaml:"trait,omitempty" json:"trait,omitempty"`
	ReverseScored bool     `yaml:"reverse_scored,omitempty" json:"reverse_scored,omitempty"`
	LikertMax     int      `yaml:"likert_max,omitempty" json:"likert_max,omitempty"`
	Options       []string `yaml:"options,omitempty" json:"options,omitempty"`
	MaxSelections int      `yaml:"max_selections,omitempty" json:"max_selections,omitempty"`
}

// SkipPredicate is a data-modeled condition over the trigger question's
// answer: no inline conditionals keyed on literal ids.
type SkipPredicate struct {
	Op    string   `yaml:"op" json:"op"`
	Value string   `yaml:"value,omitempty" json:"value,omitempty"`
	AnyOf []string `yaml:"any_of,omitempty" json:"any_of,omitempty"`
}

// SkipRule marks target questions skipped while its predicate holds for
// the trigger question's current answer.
type SkipRule struct {
	Trigger   string        `yaml:"trigger" json:"trigger"`
	Predicate SkipPredicate `yaml:"predicate" json:"predicate"`
	Targets   []string      `yaml:"targets" json:"targets"`
}

// SectionSpec is an ordered group of questions advanced through as a
// unit. Threshold is the answered fraction required to leave it.
type SectionSpec struct {
	ID        string         `yaml:"id" json:"id"`
	Title     string         `yaml:"title" json:"title"`
	Threshold float64        `yaml:"threshold" json:"threshold"`
	Scored    bool           `yaml:"scored" json:"scored"`
	Questions []QuestionSpec `yaml:"questions" json:"questions"`
	SkipRules []SkipRule     `yaml:"skip_rules,omitempty" json:"skip_rules,omitempty"`
}

// Catalog is a versioned, read-only question catalog.
type Catalog struct {
	Version  string        `yaml:"version" json:"version"`
	Sections []SectionSpec `yaml:"sections" json:"sections"`

	byID        map[string]int
	questionSet map[string]QuestionSpec
}

// Section returns the section spec for the given id.
func (c *Catalog) Section(id string) (SectionSpec, error) {
	idx, ok := c.byID[id]
	if !ok {
		return SectionSpec{}, fmt.Errorf("%w: %q", ErrUnknownSection, id)
	}
	return c.Sections[idx], nil
}

// QuestionsInSection returns the section's questions in catalog order.
func (c *Catalog) QuestionsInSection(section string) ([]QuestionSpec, error) {
	sec, err := c.Section(section)
	if err != nil {
		return nil, err
	}
	return sec.Questions, nil
}

// SkipRulesFor returns the section's skip rules.
func (c *Catalog) SkipRulesFor(section string) ([]SkipRule, error) {
	sec, err := c.Section(section)
	if err != nil {
		return nil, err
	}
	return sec.SkipRules, nil
}

// Question looks up any question by id across sections.
func (c *Catalog) Question(id string) (QuestionSpec, bool) {
	q, ok := c.questionSet[id]
	return q, ok
}

// FirstSection is the section a fresh assessment starts in.
func (c *Catalog) FirstSection() string {
	return c.Sections[0].ID
}

// Successor returns the section after the given one, or the terminal
// marker for the last section.
func (c *Catalog) Successor(section string) (string, error) {
	idx, ok := c.byID[section]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if idx == len(c.Sections)-1 {
		return "", nil
	}
	return c.Sections[idx+1].ID, nil
}

// Predecessor returns the section before the given one, or "" for the
// first section. The terminal marker's predecessor is the last section.
func (c *Catalog) Predecessor(section string) (string, error) {
	if section == "" {
		return "", nil
	}
	idx, ok := c.byID[section]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	if idx == 0 {
		return "", nil
	}
	return c.Sections[idx-1].ID, nil
}

// LastSection returns the final section id.
func (c *Catalog) LastSection() string {
	return c.Sections[len(c.Sections)-1].ID
}

// ScoredSections returns the ids of sections that feed the trait
// profile, in catalog order.
func (c *Catalog) ScoredSections() []string {
	var out []string
	for _, sec := range c.Sections {
		if sec.Scored {
			out = append(out, sec.ID)
		}
	}
	return out
}

func (c *Catalog) index() error {
	if len(c.Sections) == 0 {
		return errors.New("catalog has no sections")
	}
	c.byID = make(map[string]int, len(c.Sections))
	c.questionSet = make(map[string]QuestionSpec)
	for i := range c.Sections {
		sec := &c.Sections[i]
		if sec.ID == "" {
			return fmt.Errorf("section %d has no id", i)
		}
		if _, dup := c.byID[sec.ID]; dup {
			return fmt.Errorf("duplicate section id %q", sec.ID)
		}
		c.byID[sec.ID] = i
		if sec.Threshold == 0 {
			sec.Threshold = defaultThreshold
		}
		if sec.Threshold < 0 || sec.Threshold > 1 {
			return fmt.Errorf("section %q: threshold %v out of range", sec.ID, sec.Threshold)
		}
		for j := range sec.Questions {
			q := &sec.Questions[j]
			q.Section = sec.ID
			if q.ID == "" {
				return fmt.Errorf("section %q: question %d has no id", sec.ID, j)
			}
			if _, dup := c.questionSet[q.ID]; dup {
				return fmt.Errorf("duplicate question id %q", q.ID)
			}
			if err := validateQuestion(*q); err != nil {
				return fmt.Errorf("question %q: %w", q.ID, err)
			}
			c.questionSet[q.ID] = *q
		}
	}
	for _, sec := range c.Sections {
		for _, rule := range sec.SkipRules {
			if err := c.validateRule(sec.ID, rule); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateQuestion(q QuestionSpec) error {
	switch q.Kind {
	case KindScalarSlider:
		if q.LikertMax < 2 {
			return fmt.Errorf("scalar slider needs likert_max >= 2, got %d", q.LikertMax)
		}
	case KindSingleChoice, KindMultiChoice:
		if len(q.Options) == 0 {
			return errors.New("choice question has no options")
		}
	case KindFreeText:
		// no value domain
	default:
		return fmt.Errorf("unknown kind %q", q.Kind)
	}
	if q.ReverseScored && q.LikertMax == 0 {
		return errors.New("reverse scoring requires a likert domain")
	}
	return nil
}

func (c *Catalog) validateRule(section string, rule SkipRule) error {
	trigger, ok := c.questionSet[rule.Trigger]
	if !ok {
		return fmt.Errorf("section %q: skip rule trigger %q not in catalog", section, rule.Trigger)
	}
	if trigger.Section != section {
		return fmt.Errorf("section %q: skip rule trigger %q belongs to section %q", section, rule.Trigger, trigger.Section)
	}
	if len(rule.Targets) == 0 {
		return fmt.Errorf("section %q: skip rule on %q has no targets", section, rule.Trigger)
	}
	for _, target := range rule.Targets {
		tq, ok := c.questionSet[target]
		if !ok {
			return fmt.Errorf("section %q: skip rule target %q not in catalog", section, target)
		}
		if tq.Section != section {
			return fmt.Errorf("section %q: skip rule target %q belongs to section %q", section, target, tq.Section)
		}
		if target == rule.Trigger {
			return fmt.Errorf("section %q: skip rule on %q targets its own trigger", section, rule.Trigger)
		}
	}
	switch rule.Predicate.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		if rule.Predicate.Value == "" {
			return fmt.Errorf("section %q: skip rule on %q: op %q needs a value", section, rule.Trigger, rule.Predicate.Op)
		}
	case OpIn:
		if len(rule.Predicate.AnyOf) == 0 {
			return fmt.Errorf("section %q: skip rule on %q: op in needs any_of", section, rule.Trigger)
		}
	default:
		return fmt.Errorf("section %q: skip rule on %q: unknown op %q", section, rule.Trigger, rule.Predicate.Op)
	}
	return nil
}

const defaultThreshold = 0.8
