package prompt

import "strings"

// DefaultPreamble opens every prompt. It names the assistant and pins
// the behaviors the rest of the prompt depends on: accuracy, inline
// source citations, answering in the question's language, and clear
// stepwise structure.
const DefaultPreamble = "You are E.R.I.K., a helpful, concise study assistant. " +
	"Answer accurately. When a line of the web context informs your answer, cite it inline as [Source: URL]. " +
	"Reply in the same language as the question. Structure stepwise and mathematical answers clearly."

// NoContextNotice replaces the context block when retrieval produced
// nothing.
const NoContextNotice = "No external information was retrieved for this question."

const (
	contextBlockTemplate  = "Web context:\n{context}\nUse [Source: URL] if needed."
	questionBlockTemplate = "User question:\n{question}\nAnswer:"
)

// Composer renders the three-block prompt: preamble, context or
// notice, then the labeled question with an answer cue. Backends
// depend on this ordering.
type Composer struct {
	preamble      string
	contextBlock  *Template
	questionBlock *Template
}

// ComposerOption configures a Composer.
type ComposerOption func(*Composer)

// WithPreamble overrides the instruction preamble.
func WithPreamble(preamble string) ComposerOption {
	return func(c *Composer) {
		c.preamble = preamble
	}
}

// NewComposer creates a Composer.
func NewComposer(opts ...ComposerOption) *Composer {
	c := &Composer{
		preamble:      DefaultPreamble,
		contextBlock:  NewTemplate(contextBlockTemplate),
		questionBlock: NewTemplate(questionBlockTemplate),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose builds the prompt for a question and its retrieved context.
// A blank context yields the NoContextNotice instead of the context
// block.
func (c *Composer) Compose(question, context string) string {
	blocks := make([]string, 0, 3)
	blocks = append(blocks, c.preamble)

	if strings.TrimSpace(context) == "" {
		blocks = append(blocks, NoContextNotice)
	} else {
		blocks = append(blocks, c.contextBlock.Format(map[string]string{"context": context}))
	}

	blocks = append(blocks, c.questionBlock.Format(map[string]string{"question": question}))

	return strings.Join(blocks, "\n\n")
}
