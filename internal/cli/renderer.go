package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
)

const (
	// AnswerPrefix precedes everything the assistant says.
	AnswerPrefix = "YADA: "
	// ChatPrompt is shown when waiting for a new request.
	ChatPrompt = "YOU: "
	// ConfirmPrompt is shown when waiting for a tool confirmation.
	ConfirmPrompt = "YOU (y/N): "

	Greeting = "Hello! How can I help you?"
	Farewell = "Goodbye!"

	ThinkingIndicator = "Thinking..."
	WorkingIndicator  = "Working..."
)

const banner = `
__  _____   ___  ___
\ \/ / _ | / _ \/ _ |
 \  / __ |/ // / __ |
 /_/_/ |_/____/_/ |_|
Yet Another Dev Assistant
`

const examples = `**Examples of what you can ask me**
- What can you do?
- What are all the inputs to run a Docker container?
- Create the dir "foo"
- Install Homebrew
- Install python@3.12 using Homebrew
- Clone "Git URL" to path "bar"`

// Renderer writes assistant output to the terminal. With noColor all
// styling is dropped; with noMarkdown text is printed as is.
type Renderer struct {
	out        io.Writer
	noColor    bool
	noMarkdown bool
	markdown   *glamour.TermRenderer

	titleStyle     lipgloss.Style
	prefixStyle    lipgloss.Style
	indicatorStyle lipgloss.Style
	errorStyle     lipgloss.Style
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, noColor, noMarkdown bool) *Renderer {
	r := &Renderer{
		out:        out,
		noColor:    noColor,
		noMarkdown: noMarkdown,
	}
	if !noColor {
		lr := lipgloss.NewRenderer(out)
		r.titleStyle = lr.NewStyle().Foreground(lipgloss.Color("12"))
		r.prefixStyle = lr.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
		r.indicatorStyle = lr.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
		r.errorStyle = lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	}
	if !noMarkdown {
		opts := []glamour.TermRendererOption{glamour.WithWordWrap(100)}
		if noColor {
			opts = append(opts, glamour.WithStandardStyle(styles.NoTTYStyle))
		} else {
			opts = append(opts, glamour.WithAutoStyle())
		}
		md, err := glamour.NewTermRenderer(opts...)
		if err == nil {
			r.markdown = md
		}
	}
	return r
}

// Title prints the banner and the list of example requests.
func (r *Renderer) Title() {
	fmt.Fprintln(r.out, r.paint(r.titleStyle, banner))
	fmt.Fprintln(r.out, r.renderMarkdown(examples))
	fmt.Fprintln(r.out)
}

// Answer prints text as the assistant's reply.
func (r *Renderer) Answer(text string) {
	fmt.Fprintf(r.out, "%s%s\n", r.paint(r.prefixStyle, AnswerPrefix), r.renderMarkdown(text))
}

// Indicator prints a progress line such as ThinkingIndicator.
func (r *Renderer) Indicator(msg string) {
	fmt.Fprintln(r.out, r.paint(r.indicatorStyle, msg))
}

// Error prints err as an error line.
func (r *Renderer) Error(err error) {
	fmt.Fprintf(r.out, "%s%s\n", r.paint(r.prefixStyle, AnswerPrefix), r.paint(r.errorStyle, "Error: "+err.Error()))
}

// Farewell says goodbye.
func (r *Renderer) Farewell() {
	r.Answer(Farewell)
}

func (r *Renderer) paint(style lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return style.Render(text)
}

func (r *Renderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}
